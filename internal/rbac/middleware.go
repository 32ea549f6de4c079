package rbac

import (
	"encoding/json"
	"net/http"

	"github.com/hackmathlogic/hackmath/internal/metrics"
)

var defaultChecker = NewChecker(nil)

// Require admits callers allowed by the named policy.
func Require(policy string) func(http.Handler) http.Handler {
	return gate(func(p Principal) Decision { return defaultChecker.Decide(p, policy) })
}

// RequireRoles admits callers whose role is in roles; no roles means any
// authenticated caller with a profile.
func RequireRoles(roles ...string) func(http.Handler) http.Handler {
	return gate(func(p Principal) Decision { return Check(p, roles) })
}

func gate(decide func(Principal) Decision) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d := decide(PrincipalFromContext(r.Context()))
			if d != Allow {
				Deny(w, d)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Deny writes a redirect to the decision's safe target with a user-visible
// message in the body.
func Deny(w http.ResponseWriter, d Decision) {
	metrics.AccessDenied.WithLabelValues(d.Signal()).Inc()
	w.Header().Set("Location", d.Redirect())
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusSeeOther)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":    d.Signal(),
		"message":  d.Message(),
		"redirect": d.Redirect(),
	})
}
