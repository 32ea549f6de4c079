package http

import (
	"net/http"

	"github.com/hackmathlogic/hackmath/internal/content"
	"github.com/hackmathlogic/hackmath/internal/exam"
)

type subthemeView struct {
	content.SubThemeDetail
	Tests []exam.Test `json:"tests"`
}

func CreateSubThemeHandler(store content.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		themeID, ok := pathID(r, "themeID")
		if !ok {
			notFound(w)
			return
		}
		var req subthemeReq
		if err := decodeAndValidate(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		d, err := store.CreateSubTheme(r.Context(), themeID, content.SubThemeInput{Title: req.Title, Text: req.Text})
		if err != nil {
			writeError(w, r, err)
			return
		}
		respondJSON(w, http.StatusCreated, d)
	}
}

// GetSubThemeHandler returns the subtheme, its article and its tests.
func GetSubThemeHandler(store content.Store, exams exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sc, ok := pathScope(r)
		if !ok {
			notFound(w)
			return
		}
		d, err := store.GetSubTheme(r.Context(), sc.ThemeID, sc.SubThemeID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		tests, err := exams.ListTests(r.Context(), sc)
		if err != nil {
			writeError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, subthemeView{SubThemeDetail: d, Tests: tests})
	}
}

func UpdateSubThemeHandler(store content.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sc, ok := pathScope(r)
		if !ok {
			notFound(w)
			return
		}
		var req subthemeReq
		if err := decodeAndValidate(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		d, err := store.UpdateSubTheme(r.Context(), sc.ThemeID, sc.SubThemeID, content.SubThemeInput{Title: req.Title, Text: req.Text})
		if err != nil {
			writeError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, d)
	}
}

func DeleteSubThemeHandler(store content.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sc, ok := pathScope(r)
		if !ok {
			notFound(w)
			return
		}
		if err := store.DeleteSubTheme(r.Context(), sc.ThemeID, sc.SubThemeID); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
