package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// SecretSource says where a secret value came from.
type SecretSource string

const (
	SecretUnset SecretSource = ""
	SecretEnv   SecretSource = "env"
	SecretFile  SecretSource = "file"
)

// Secret is a resolved secret.
type Secret struct {
	Name   string
	Value  string
	Source SecretSource
}

// LookupSecret resolves name using the *_FILE convention: when name_FILE is
// set the secret is the trimmed content of that file, otherwise the value of
// name itself. An unreadable file is an error; nothing set is not.
func LookupSecret(name string) (Secret, error) {
	s := Secret{Name: name}
	if path := os.Getenv(name + "_FILE"); path != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return s, fmt.Errorf("secret %s: reading %s_FILE: %w", name, name, err)
		}
		s.Value = strings.TrimSpace(string(content))
		s.Source = SecretFile
		return s, nil
	}
	if v, ok := os.LookupEnv(name); ok && v != "" {
		s.Value = v
		s.Source = SecretEnv
	}
	return s, nil
}

// ResolveSecret returns just the value of LookupSecret.
func ResolveSecret(name string) (string, error) {
	s, err := LookupSecret(name)
	return s.Value, err
}

// ResolveSecrets resolves several secrets. Every failure is reported in the
// joined error, and no values are returned if any failed.
func ResolveSecrets(names ...string) (map[string]string, error) {
	out := make(map[string]string, len(names))
	var errs []error
	for _, name := range names {
		s, err := LookupSecret(name)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out[name] = s.Value
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return out, nil
}
