package http

import (
	"net/http"

	"github.com/hackmathlogic/hackmath/internal/exam"
)

func CreateQuestionHandler(store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sc, ok := pathScope(r)
		if !ok {
			notFound(w)
			return
		}
		var req questionReq
		if err := decodeAndValidate(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		q, err := store.CreateQuestion(r.Context(), sc, req.Text)
		if err != nil {
			writeError(w, r, err)
			return
		}
		respondJSON(w, http.StatusCreated, q)
	}
}

func GetQuestionHandler(store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sc, ok := pathScope(r)
		if !ok {
			notFound(w)
			return
		}
		q, err := store.GetQuestion(r.Context(), sc)
		if err != nil {
			writeError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, q)
	}
}

func UpdateQuestionHandler(store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sc, ok := pathScope(r)
		if !ok {
			notFound(w)
			return
		}
		var req questionReq
		if err := decodeAndValidate(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		q, err := store.UpdateQuestion(r.Context(), sc, req.Text)
		if err != nil {
			writeError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, q)
	}
}

func DeleteQuestionHandler(store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sc, ok := pathScope(r)
		if !ok {
			notFound(w)
			return
		}
		if err := store.DeleteQuestion(r.Context(), sc); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
