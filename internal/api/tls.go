package api

import (
	"crypto/tls"
	"fmt"
	"os"
)

// TLSFiles names the PEM certificate and key the API serves with.
type TLSFiles struct {
	CertFile string
	KeyFile  string
}

var tlsFiles *TLSFiles

// InitTLS reads SENTIENT_TLS_CERT and SENTIENT_TLS_KEY. Setting neither
// serves plain HTTP; setting only one, or naming a missing file, is an error.
func InitTLS() error {
	cert := os.Getenv("SENTIENT_TLS_CERT")
	key := os.Getenv("SENTIENT_TLS_KEY")

	switch {
	case cert == "" && key == "":
		tlsFiles = nil
		return nil
	case cert == "" || key == "":
		return fmt.Errorf("SENTIENT_TLS_CERT and SENTIENT_TLS_KEY must be set together")
	}
	for _, path := range []string{cert, key} {
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("tls: %w", err)
		}
	}
	tlsFiles = &TLSFiles{CertFile: cert, KeyFile: key}
	return nil
}

// SetTLSFiles replaces the TLS configuration. Nil disables TLS.
func SetTLSFiles(f *TLSFiles) {
	tlsFiles = f
}

// IsTLSEnabled reports whether the API serves TLS.
func IsTLSEnabled() bool {
	return tlsFiles != nil
}

// LoadTLSConfig builds the server TLS config. It returns nil without error
// when TLS is disabled.
func LoadTLSConfig() (*tls.Config, error) {
	if tlsFiles == nil {
		return nil, nil
	}
	cert, err := tls.LoadX509KeyPair(tlsFiles.CertFile, tlsFiles.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load TLS key pair: %w", err)
	}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}, nil
}
