package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeSecret(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "secret.txt")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write secret file: %v", err)
	}
	return path
}

func TestLookupSecret(t *testing.T) {
	tests := []struct {
		name       string
		env        string
		file       *string
		wantValue  string
		wantSource SecretSource
	}{
		{"neither set", "", nil, "", SecretUnset},
		{"env only", "env-value", nil, "env-value", SecretEnv},
		{"file only", "", ptr("file-value\n"), "file-value", SecretFile},
		{"file wins over env", "env-value", ptr("file-value"), "file-value", SecretFile},
		{"file trimmed", "", ptr("  secret-value  \n\n"), "secret-value", SecretFile},
		{"empty file", "", ptr(""), "", SecretFile},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			const name = "TEST_STAGE_SECRET"
			t.Setenv(name, tt.env)
			t.Setenv(name+"_FILE", "")
			if tt.file != nil {
				t.Setenv(name+"_FILE", writeSecret(t, *tt.file))
			}

			s, err := LookupSecret(name)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if s.Value != tt.wantValue {
				t.Errorf("value = %q, want %q", s.Value, tt.wantValue)
			}
			if s.Source != tt.wantSource {
				t.Errorf("source = %q, want %q", s.Source, tt.wantSource)
			}
			if s.Name != name {
				t.Errorf("name = %q", s.Name)
			}
		})
	}
}

func TestResolveSecret_FileNotFound(t *testing.T) {
	t.Setenv("TEST_STAGE_MISSING_FILE", "/nonexistent/path/to/secret")

	if _, err := ResolveSecret("TEST_STAGE_MISSING"); err == nil {
		t.Error("expected error when file does not exist")
	}
}

func TestResolveSecrets_Mixed(t *testing.T) {
	t.Setenv("TEST_STAGE_USER", "operator")
	t.Setenv("TEST_STAGE_USER_FILE", "")
	t.Setenv("TEST_STAGE_PASS", "")
	t.Setenv("TEST_STAGE_PASS_FILE", writeSecret(t, "hunter2\n"))

	got, err := ResolveSecrets("TEST_STAGE_USER", "TEST_STAGE_PASS")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got["TEST_STAGE_USER"] != "operator" {
		t.Errorf("got user %q, want %q", got["TEST_STAGE_USER"], "operator")
	}
	if got["TEST_STAGE_PASS"] != "hunter2" {
		t.Errorf("got pass %q, want %q", got["TEST_STAGE_PASS"], "hunter2")
	}
}

func TestResolveSecrets_ReportsEveryFailure(t *testing.T) {
	t.Setenv("TEST_STAGE_A_FILE", "/nonexistent/a")
	t.Setenv("TEST_STAGE_B_FILE", "/nonexistent/b")

	got, err := ResolveSecrets("TEST_STAGE_A", "TEST_STAGE_OK", "TEST_STAGE_B")
	if err == nil {
		t.Fatal("expected error for unreadable secret files")
	}
	if got != nil {
		t.Errorf("expected no values on failure, got %v", got)
	}
	for _, name := range []string{"TEST_STAGE_A", "TEST_STAGE_B"} {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("error %q does not mention %s", err, name)
		}
	}
}

func ptr(s string) *string { return &s }
