package api

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"
	"slices"

	"github.com/AaronLay10/SentientStage/internal/config"
)

// Role is an API authorization role.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleOperator Role = "operator"
)

// credential is one basic-auth account.
type credential struct {
	user string
	pass string
	role Role
}

// authTable lists the accounts in match order. An empty table disables auth.
type authTable struct {
	accounts []credential
}

var auth *authTable

type roleKey struct{}

// InitAuth loads the admin and operator accounts from SENTIENT_ADMIN_USER,
// SENTIENT_ADMIN_PASS, SENTIENT_OPERATOR_USER and SENTIENT_OPERATOR_PASS,
// each of which may instead be read from a file named by the *_FILE variant.
// With no admin account the API is open. A user without a password, or an
// operator without an admin, is rejected.
func InitAuth() error {
	creds, err := config.ResolveSecrets(
		"SENTIENT_ADMIN_USER",
		"SENTIENT_ADMIN_PASS",
		"SENTIENT_OPERATOR_USER",
		"SENTIENT_OPERATOR_PASS",
	)
	if err != nil {
		return err
	}

	table := &authTable{}
	for _, acct := range []struct {
		prefix string
		role   Role
	}{
		{"SENTIENT_ADMIN", RoleAdmin},
		{"SENTIENT_OPERATOR", RoleOperator},
	} {
		user, pass := creds[acct.prefix+"_USER"], creds[acct.prefix+"_PASS"]
		if user == "" && pass == "" {
			continue
		}
		if user == "" || pass == "" {
			return fmt.Errorf("%s_USER and %s_PASS must be set together", acct.prefix, acct.prefix)
		}
		table.accounts = append(table.accounts, credential{user: user, pass: pass, role: acct.role})
	}

	if len(table.accounts) > 0 && table.accounts[0].role != RoleAdmin {
		return fmt.Errorf("operator credentials require admin credentials")
	}
	auth = table
	return nil
}

// IsAuthEnabled reports whether requests must authenticate.
func IsAuthEnabled() bool {
	return auth != nil && len(auth.accounts) > 0
}

// authenticate returns the caller's role, or "" for bad credentials.
func authenticate(r *http.Request) Role {
	if !IsAuthEnabled() {
		return RoleAdmin
	}
	user, pass, ok := r.BasicAuth()
	if !ok {
		return ""
	}
	for _, c := range auth.accounts {
		if secureCompare(user, c.user) && secureCompare(pass, c.pass) {
			return c.role
		}
	}
	return ""
}

// secureCompare compares in constant time.
func secureCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func requireAuth(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Basic realm="Sentient Stage"`)
	http.Error(w, "Unauthorized", http.StatusUnauthorized)
}

// RoleFromContext returns the role RequireRole authenticated, or "".
func RoleFromContext(ctx context.Context) Role {
	role, _ := ctx.Value(roleKey{}).(Role)
	return role
}

// RequireRole wraps a handler and admits only the listed roles. The
// authenticated role is available to the handler via RoleFromContext.
func RequireRole(handler http.HandlerFunc, allowedRoles ...Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		role := authenticate(r)
		if role == "" {
			requireAuth(w)
			return
		}
		if !slices.Contains(allowedRoles, role) {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		handler(w, r.WithContext(context.WithValue(r.Context(), roleKey{}, role)))
	}
}

// RequireAnyRole admits admin and operator.
func RequireAnyRole(handler http.HandlerFunc) http.HandlerFunc {
	return RequireRole(handler, RoleAdmin, RoleOperator)
}

// RequireAdmin admits admin only.
func RequireAdmin(handler http.HandlerFunc) http.HandlerFunc {
	return RequireRole(handler, RoleAdmin)
}
