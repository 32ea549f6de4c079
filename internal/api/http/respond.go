package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/hackmathlogic/hackmath/internal/auth"
	"github.com/hackmathlogic/hackmath/internal/content"
	"github.com/hackmathlogic/hackmath/internal/exam"
)

const maxBody = 1 << 20

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report fields under their JSON names
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidationError is returned for malformed or invalid input. Input is
// echoed back so the client can redisplay the form.
type ValidationError struct {
	Fields map[string]string
	Input  any
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	return "validation failed: " + strings.Join(keys, ", ")
}

func fieldError(field, msg string, input any) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}, Input: input}
}

// normalizer is implemented by request bodies that clean up their fields
// before validation.
type normalizer interface{ normalize() }

// echoer is implemented by request bodies that must not be echoed verbatim.
type echoer interface{ echo() any }

// decodeAndValidate reads a JSON body into dst and validates it.
func decodeAndValidate(r *http.Request, dst any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, dst); err != nil {
		var raw any = string(body)
		if _, ok := dst.(echoer); ok {
			raw = nil
		}
		return fieldError("body", "invalid json", raw)
	}
	if n, ok := dst.(normalizer); ok {
		n.normalize()
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		ve := &ValidationError{Fields: map[string]string{}, Input: dst}
		if e, ok := dst.(echoer); ok {
			ve.Input = e.echo()
		}
		for _, fe := range verrs {
			ve.Fields[fe.Field()] = describe(fe)
		}
		return ve
	}
	return nil
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "gt":
		return "must be a positive id"
	case "oneof":
		return "must be one of: " + fe.Param()
	default:
		return "is invalid"
	}
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// writeError maps domain errors to responses. Anything unrecognised is
// logged and reported as a 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *ValidationError
	switch {
	case errors.As(err, &ve):
		respondJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":  "validation failed",
			"fields": ve.Fields,
			"input":  ve.Input,
		})
	case errors.Is(err, content.ErrNotFound), errors.Is(err, exam.ErrNotFound), errors.Is(err, auth.ErrNotFound):
		notFound(w)
	default:
		log.Printf("[%s] %s %s: %v", middleware.GetReqID(r.Context()), r.Method, r.URL.Path, err)
		respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func notFound(w http.ResponseWriter) {
	respondJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
}

// pathID reads a positive integer URL param.
func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return id, err == nil && id > 0
}

// pathScope reads every id of the test hierarchy present in the route. An
// id that is present but malformed cannot resolve, so ok is false.
func pathScope(r *http.Request) (exam.Scope, bool) {
	var sc exam.Scope
	for _, p := range []struct {
		name string
		dst  *int64
	}{
		{"themeID", &sc.ThemeID},
		{"subthemeID", &sc.SubThemeID},
		{"testID", &sc.TestID},
		{"questionID", &sc.QuestionID},
		{"answerID", &sc.AnswerID},
	} {
		if chi.URLParam(r, p.name) == "" {
			continue
		}
		id, ok := pathID(r, p.name)
		if !ok {
			return exam.Scope{}, false
		}
		*p.dst = id
	}
	return sc, true
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil && v >= 0 {
		return v
	}
	return def
}
