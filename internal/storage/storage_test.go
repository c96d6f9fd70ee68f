package storage

import "testing"

func TestClampLimit(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, DefaultQueryLimit},
		{-5, DefaultQueryLimit},
		{50, 50},
		{MaxQueryLimit + 1, MaxQueryLimit},
	}
	for _, tt := range tests {
		if got := ClampLimit(tt.in); got != tt.want {
			t.Errorf("ClampLimit(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestEncodeFields(t *testing.T) {
	b, err := EncodeFields(nil)
	if err != nil || b != nil {
		t.Errorf("expected nil for no fields, got %q, %v", b, err)
	}

	b, err = EncodeFields(map[string]interface{}{"zone": "Cave"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(b) != `{"zone":"Cave"}` {
		t.Errorf("unexpected encoding %s", b)
	}

	if _, err := EncodeFields(map[string]interface{}{"bad": make(chan int)}); err == nil {
		t.Error("expected error for unencodable field")
	}
}

func TestNullable(t *testing.T) {
	if Nullable("") != nil {
		t.Error("expected nil for empty string")
	}
	if p := Nullable("x"); p == nil || *p != "x" {
		t.Errorf("expected pointer to x, got %v", p)
	}
}
