package http

import (
	"net/http"

	"github.com/hackmathlogic/hackmath/internal/exam"
	"github.com/hackmathlogic/hackmath/internal/rbac"
)

func ListTestsHandler(store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sc, ok := pathScope(r)
		if !ok {
			notFound(w)
			return
		}
		list, err := store.ListTests(r.Context(), sc)
		if err != nil {
			writeError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, list)
	}
}

// GetTestHandler returns the full test to authors and the form (no answer
// key) to everybody else.
func GetTestHandler(store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sc, ok := pathScope(r)
		if !ok {
			notFound(w)
			return
		}
		d, err := store.GetTest(r.Context(), sc)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if !rbac.CanAuthor(rbac.PrincipalFromContext(r.Context())) {
			respondJSON(w, http.StatusOK, d.Form())
			return
		}
		respondJSON(w, http.StatusOK, d)
	}
}

func CreateTestHandler(store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sc, ok := pathScope(r)
		if !ok {
			notFound(w)
			return
		}
		var req testReq
		if err := decodeAndValidate(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		t, err := store.CreateTest(r.Context(), sc, req.Question)
		if err != nil {
			writeError(w, r, err)
			return
		}
		respondJSON(w, http.StatusCreated, t)
	}
}

func UpdateTestHandler(store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sc, ok := pathScope(r)
		if !ok {
			notFound(w)
			return
		}
		var req testReq
		if err := decodeAndValidate(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		t, err := store.UpdateTest(r.Context(), sc, req.Question)
		if err != nil {
			writeError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, t)
	}
}

func DeleteTestHandler(store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sc, ok := pathScope(r)
		if !ok {
			notFound(w)
			return
		}
		if err := store.DeleteTest(r.Context(), sc); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// ---- run ----

func TestFormHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sc, ok := pathScope(r)
		if !ok {
			notFound(w)
			return
		}
		f, err := svc.Form(r.Context(), sc)
		if err != nil {
			writeError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, f)
	}
}

// SubmitTestHandler scores one attempt. Each call records a new result.
func SubmitTestHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sc, ok := pathScope(r)
		if !ok {
			notFound(w)
			return
		}
		var req submitReq
		if err := decodeAndValidate(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		p := rbac.PrincipalFromContext(r.Context())
		out, err := svc.Submit(r.Context(), sc, p.UserID, exam.Submission{Answers: req.Answers})
		if err != nil {
			writeError(w, r, err)
			return
		}
		respondJSON(w, http.StatusCreated, out)
	}
}
