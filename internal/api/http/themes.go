package http

import (
	"net/http"

	"github.com/hackmathlogic/hackmath/internal/content"
)

func ListThemesHandler(store content.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := store.ListThemes(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, list)
	}
}

func GetThemeHandler(store content.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r, "themeID")
		if !ok {
			notFound(w)
			return
		}
		d, err := store.GetTheme(r.Context(), id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, d)
	}
}

func CreateThemeHandler(store content.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req themeReq
		if err := decodeAndValidate(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		t, err := store.CreateTheme(r.Context(), req.Title)
		if err != nil {
			writeError(w, r, err)
			return
		}
		respondJSON(w, http.StatusCreated, t)
	}
}

func UpdateThemeHandler(store content.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r, "themeID")
		if !ok {
			notFound(w)
			return
		}
		var req themeReq
		if err := decodeAndValidate(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		t, err := store.UpdateTheme(r.Context(), id, req.Title)
		if err != nil {
			writeError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, t)
	}
}

// DeleteThemeHandler removes the theme with everything under it.
func DeleteThemeHandler(store content.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r, "themeID")
		if !ok {
			notFound(w)
			return
		}
		if err := store.DeleteTheme(r.Context(), id); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
