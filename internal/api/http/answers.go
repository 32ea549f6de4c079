package http

import (
	"net/http"

	"github.com/hackmathlogic/hackmath/internal/exam"
)

func CreateAnswerHandler(store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sc, ok := pathScope(r)
		if !ok {
			notFound(w)
			return
		}
		var req answerReq
		if err := decodeAndValidate(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		a, err := store.CreateAnswer(r.Context(), sc, exam.AnswerInput{Text: req.Text, IsRight: req.IsRight})
		if err != nil {
			writeError(w, r, err)
			return
		}
		respondJSON(w, http.StatusCreated, a)
	}
}

func GetAnswerHandler(store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sc, ok := pathScope(r)
		if !ok {
			notFound(w)
			return
		}
		a, err := store.GetAnswer(r.Context(), sc)
		if err != nil {
			writeError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, a)
	}
}

func UpdateAnswerHandler(store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sc, ok := pathScope(r)
		if !ok {
			notFound(w)
			return
		}
		var req answerReq
		if err := decodeAndValidate(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		a, err := store.UpdateAnswer(r.Context(), sc, exam.AnswerInput{Text: req.Text, IsRight: req.IsRight})
		if err != nil {
			writeError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, a)
	}
}

func DeleteAnswerHandler(store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sc, ok := pathScope(r)
		if !ok {
			notFound(w)
			return
		}
		if err := store.DeleteAnswer(r.Context(), sc); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
