package auth

import (
	"database/sql"
	"errors"
	"log"
	"net/http"

	"github.com/hackmathlogic/hackmath/internal/rbac"
)

// AttachProfile loads the caller's role from user_profiles on every request.
// An authenticated caller without a profile keeps an empty role.
func AttachProfile(db *sql.DB) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			p := rbac.PrincipalFromContext(ctx)
			if !p.Authenticated {
				next.ServeHTTP(w, r)
				return
			}

			var role string
			err := db.QueryRowContext(ctx,
				`SELECT role FROM user_profiles WHERE user_id=$1`, p.UserID).Scan(&role)
			switch {
			case err == nil:
				p.Role = role
			case errors.Is(err, sql.ErrNoRows):
				p.Role = ""
			default:
				log.Printf("profile lookup for user %d: %v", p.UserID, err)
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}
			next.ServeHTTP(w, r.WithContext(rbac.WithPrincipal(ctx, p)))
		})
	}
}
