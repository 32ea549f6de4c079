package http

import (
	"net/http"

	"github.com/hackmathlogic/hackmath/internal/exam"
	"github.com/hackmathlogic/hackmath/internal/rbac"
	syncx "github.com/hackmathlogic/hackmath/internal/sync"
)

// GET /me/results: the caller's stored results, newest first.
func MyResultsHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := rbac.PrincipalFromContext(r.Context())
		list, err := svc.ListResults(r.Context(), p.UserID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, list)
	}
}

// GET /events?after=<seq>&limit=<n>
func EventsFeedHandler(events *syncx.EventRepo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		after := int64(parseIntDefault(q.Get("after"), 0))
		list, err := events.Since(r.Context(), after, parseIntDefault(q.Get("limit"), 100))
		if err != nil {
			writeError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, list)
	}
}
