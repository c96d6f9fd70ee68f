package postgres

import (
	"net/url"
	"os"
	"path/filepath"
	"testing"
)

func clearPGEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"PGHOST", "PGPORT", "PGUSER", "PGDATABASE", "PGSSLMODE", "PGPASSWORD", "PGPASSWORD_FILE"} {
		t.Setenv(k, "")
	}
}

func TestConnStringDefaults(t *testing.T) {
	clearPGEnv(t)

	dsn, err := ConnString()
	if err != nil {
		t.Fatalf("ConnString: %v", err)
	}
	u, err := url.Parse(dsn)
	if err != nil {
		t.Fatalf("parse %q: %v", dsn, err)
	}
	if u.Host != "127.0.0.1:5432" || u.Path != "/sentient" || u.User.Username() != "sentient" {
		t.Errorf("unexpected defaults in %s", dsn)
	}
	if _, set := u.User.Password(); set {
		t.Error("expected no password")
	}
	if u.Query().Get("sslmode") != "disable" {
		t.Errorf("expected sslmode=disable, got %s", u.Query().Get("sslmode"))
	}
}

func TestConnStringPasswordFile(t *testing.T) {
	clearPGEnv(t)
	path := filepath.Join(t.TempDir(), "pgpass")
	if err := os.WriteFile(path, []byte("p@ss word\n"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PGHOST", "db.stage")
	t.Setenv("PGSSLMODE", "require")
	t.Setenv("PGPASSWORD_FILE", path)

	dsn, err := ConnString()
	if err != nil {
		t.Fatalf("ConnString: %v", err)
	}
	u, _ := url.Parse(dsn)
	if pw, _ := u.User.Password(); pw != "p@ss word" {
		t.Errorf("expected password from file, got %q", pw)
	}
	if u.Hostname() != "db.stage" || u.Query().Get("sslmode") != "require" {
		t.Errorf("unexpected dsn %s", dsn)
	}
}

func TestConnStringUnreadablePassword(t *testing.T) {
	clearPGEnv(t)
	t.Setenv("PGPASSWORD_FILE", "/nonexistent/pgpass")

	if _, err := ConnString(); err == nil {
		t.Error("expected error for unreadable password file")
	}
}

func TestOpenRejectsMalformedURL(t *testing.T) {
	if _, err := Open("postgres://user@host:notaport/db", "forest"); err == nil {
		t.Error("expected error for malformed dsn")
	}
}
