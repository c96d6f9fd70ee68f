package mqtt

import (
	"strings"
	"testing"
)

func TestParseRegistration(t *testing.T) {
	tests := []struct {
		name    string
		json    string
		wantErr bool
	}{
		{
			name: "valid v1 registration",
			json: `{
				"version": 1,
				"controller": {
					"id": "rig-01",
					"type": "unity",
					"firmware": "2.0.1",
					"uptime_ms": 123456,
					"heartbeat_sec": 5
				},
				"actors": [
					{
						"actor_id": "clara",
						"type": "character",
						"capabilities": ["animate", "pose"],
						"cues": ["Walk", "Idle"],
						"topics": {
							"publish": "stage/rig-01/clara/state",
							"subscribe": "stage/rig-01/clara/commands"
						}
					}
				]
			}`,
			wantErr: false,
		},
		{
			name: "unsupported version",
			json: `{
				"version": 2,
				"controller": {"id": "rig-01"}
			}`,
			wantErr: true,
		},
		{
			name: "missing controller id",
			json: `{
				"version": 1,
				"controller": {"type": "unity"}
			}`,
			wantErr: true,
		},
		{
			name:    "invalid json",
			json:    `{not json`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, err := ParseRegistration([]byte(tt.json))
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseRegistration() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && len(payload.Actors) != 1 {
				t.Errorf("expected 1 actor, got %d", len(payload.Actors))
			}
		})
	}
}

func TestValidateRegistration(t *testing.T) {
	specs := map[string]ActorSpec{
		"clara": {Animated: true, Cues: []string{"Walk", "Wave"}},
		"chair": {Animated: false},
	}

	tests := []struct {
		name         string
		actors       []ActorRegistration
		wantValid    bool
		wantErrors   int
		wantWarnings []string
	}{
		{
			name: "all good",
			actors: []ActorRegistration{
				{ActorID: "clara", Capabilities: []string{"animate"}, Cues: []string{"Walk", "Wave"}},
				{ActorID: "chair"},
			},
			wantValid: true,
		},
		{
			name: "animated actor without capability",
			actors: []ActorRegistration{
				{ActorID: "clara", Cues: []string{"Walk", "Wave"}},
			},
			wantValid:  false,
			wantErrors: 1,
		},
		{
			name: "missing cue is a warning",
			actors: []ActorRegistration{
				{ActorID: "clara", Capabilities: []string{"animate"}, Cues: []string{"Walk"}},
			},
			wantValid:    true,
			wantWarnings: []string{"cue Wave"},
		},
		{
			name: "unknown actor and empty id",
			actors: []ActorRegistration{
				{ActorID: "ghost"},
				{ActorID: ""},
			},
			wantValid:    false,
			wantErrors:   1,
			wantWarnings: []string{"unrecognized actor: ghost"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := &RegistrationPayload{Version: 1, Controller: ControllerInfo{ID: "rig-01"}, Actors: tt.actors}
			result := ValidateRegistration(payload, specs)
			if result.Valid != tt.wantValid {
				t.Errorf("Valid = %v, want %v (errors: %v)", result.Valid, tt.wantValid, result.Errors)
			}
			if len(result.Errors) != tt.wantErrors {
				t.Errorf("expected %d errors, got %v", tt.wantErrors, result.Errors)
			}
			for _, want := range tt.wantWarnings {
				found := false
				for _, w := range result.Warnings {
					if strings.Contains(w, want) {
						found = true
						break
					}
				}
				if !found {
					t.Errorf("expected warning containing %q, got %v", want, result.Warnings)
				}
			}
		})
	}
}
