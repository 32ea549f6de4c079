package http

import (
	"errors"
	"net/http"

	"github.com/hackmathlogic/hackmath/internal/auth"
	"github.com/hackmathlogic/hackmath/internal/rbac"
)

// GET /users?role=teacher
func ListUsersHandler(accounts *auth.Accounts) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		role := r.URL.Query().Get("role")
		if role != "" && !rbac.ValidRole(role) {
			writeError(w, r, fieldError("role", "must be one of: student teacher admin", map[string]string{"role": role}))
			return
		}
		list, err := accounts.List(r.Context(), role)
		if err != nil {
			writeError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, list)
	}
}

// PATCH /users/{userID} {is_admin?, role?}
func UpdateUserHandler(accounts *auth.Accounts) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r, "userID")
		if !ok {
			notFound(w)
			return
		}
		var req userPatchReq
		if err := decodeAndValidate(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		acc, err := accounts.Update(r.Context(), id, auth.AccountPatch{IsAdmin: req.IsAdmin, Role: req.Role})
		if errors.Is(err, auth.ErrLastAdmin) {
			writeError(w, r, fieldError("role", "cannot demote the last admin", req))
			return
		}
		if err != nil {
			writeError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, acc)
	}
}
