package http_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	api "github.com/hackmathlogic/hackmath/internal/api/http"
	"github.com/hackmathlogic/hackmath/internal/auth"
	authmw "github.com/hackmathlogic/hackmath/internal/auth/middleware"
	"github.com/hackmathlogic/hackmath/internal/content"
	"github.com/hackmathlogic/hackmath/internal/db"
	"github.com/hackmathlogic/hackmath/internal/exam"
	"github.com/hackmathlogic/hackmath/internal/rbac"
	syncx "github.com/hackmathlogic/hackmath/internal/sync"
)

type env struct {
	t        *testing.T
	db       *sql.DB
	h        http.Handler
	authSvc  *authmw.AuthService
	accounts *auth.Accounts
}

func newEnv(t *testing.T) *env {
	t.Helper()
	dbh, err := db.Open(context.Background(), db.DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = dbh.Close() })

	e := &env{
		t:        t,
		db:       dbh,
		authSvc:  authmw.NewAuthService("test-secret", time.Hour),
		accounts: auth.NewAccounts(dbh),
	}
	events := syncx.NewEventRepo(dbh, "test")
	r := chi.NewRouter()
	api.Mount(r, api.Deps{
		DB:      dbh,
		Content: content.NewSQLStore(dbh),
		Exams:   exam.NewService(exam.NewSQLStore(dbh), events),
		Events:  events,
		Sessions: api.Sessions{
			Accounts:           e.accounts,
			Auth:               e.authSvc,
			Revoker:            authmw.NewMemoryRevoker(),
			EnableRegistration: true,
		},
	})
	e.h = r
	return e
}

// user creates an account with role and returns a token for it.
func (e *env) user(name, role string) string {
	e.t.Helper()
	ctx := context.Background()
	var acc auth.Account
	var err error
	if role == rbac.RoleAdmin {
		hash, _ := bcrypt.GenerateFromPassword([]byte("password-123"), bcrypt.MinCost)
		if _, err = e.accounts.Bootstrap(ctx, name, string(hash)); err != nil {
			e.t.Fatalf("bootstrap: %v", err)
		}
		acc, err = e.accounts.Login(ctx, name, "password-123")
	} else {
		acc, err = e.accounts.Register(ctx, name, "password-123")
		if err == nil && role != rbac.RoleStudent {
			acc, err = e.accounts.Update(ctx, acc.ID, auth.AccountPatch{Role: &role})
		}
	}
	if err != nil {
		e.t.Fatalf("user %s: %v", name, err)
	}
	tok, err := e.authSvc.IssueJWT(acc.ID)
	if err != nil {
		e.t.Fatalf("token: %v", err)
	}
	return tok
}

func (e *env) do(method, path, token string, body any) *httptest.ResponseRecorder {
	e.t.Helper()
	var rd *bytes.Reader
	switch b := body.(type) {
	case nil:
		rd = bytes.NewReader(nil)
	case string:
		rd = bytes.NewReader([]byte(b))
	default:
		raw, _ := json.Marshal(b)
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	e.h.ServeHTTP(rr, req)
	return rr
}

func (e *env) count(table string) int {
	e.t.Helper()
	var n int
	if err := e.db.QueryRow(`SELECT COUNT(1) FROM ` + table).Scan(&n); err != nil {
		e.t.Fatalf("count %s: %v", table, err)
	}
	return n
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rr.Body).Decode(&v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return v
}

func expect(t *testing.T, rr *httptest.ResponseRecorder, code int) {
	t.Helper()
	if rr.Code != code {
		t.Fatalf("status %d, want %d: %s", rr.Code, code, rr.Body.String())
	}
}

func TestGate(t *testing.T) {
	e := newEnv(t)
	student := e.user("student1", rbac.RoleStudent)

	// anonymous
	rr := e.do(http.MethodGet, "/themes", "", nil)
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != rbac.LoginPath {
		t.Fatalf("anonymous: %d %q", rr.Code, rr.Header().Get("Location"))
	}

	// student may read but not author
	expect(t, e.do(http.MethodGet, "/themes", student, nil), http.StatusOK)
	rr = e.do(http.MethodPost, "/themes", student, map[string]string{"title": "Nope"})
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != rbac.IndexPath {
		t.Fatalf("student authoring: %d %q", rr.Code, rr.Header().Get("Location"))
	}
	if e.count("themes") != 0 {
		t.Fatalf("theme created by a student")
	}

	// account without a profile
	var ghost int64
	if err := e.db.QueryRow(`INSERT INTO users (username, password_hash, is_admin, created_at) VALUES ('ghost','x',0,0) RETURNING id`).Scan(&ghost); err != nil {
		t.Fatal(err)
	}
	tok, _ := e.authSvc.IssueJWT(ghost)
	rr = e.do(http.MethodGet, "/themes", tok, nil)
	body := decode[map[string]string](t, rr)
	if rr.Code != http.StatusSeeOther || body["error"] != "profile not found" || body["redirect"] != rbac.LoginPath {
		t.Fatalf("no profile: %d %v", rr.Code, body)
	}

	// student cannot reach admin routes
	rr = e.do(http.MethodGet, "/users", student, nil)
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("student listing users: %d", rr.Code)
	}
}

func TestSubThemeWithArticle(t *testing.T) {
	e := newEnv(t)
	teacher := e.user("teacher1", rbac.RoleTeacher)

	th := decode[content.Theme](t, e.do(http.MethodPost, "/themes", teacher, map[string]string{"title": "Fractions"}))
	rr := e.do(http.MethodPost, fmt.Sprintf("/themes/%d/subthemes", th.ID), teacher, map[string]string{"title": "T", "text": "Body"})
	expect(t, rr, http.StatusCreated)
	st := decode[content.SubThemeDetail](t, rr)

	if e.count("subthemes") != 1 || e.count("articles") != 1 {
		t.Fatalf("rows: %d subthemes, %d articles", e.count("subthemes"), e.count("articles"))
	}
	rr = e.do(http.MethodGet, fmt.Sprintf("/themes/%d/subthemes/%d", th.ID, st.ID), teacher, nil)
	expect(t, rr, http.StatusOK)
	got := decode[map[string]any](t, rr)
	article, _ := got["article"].(map[string]any)
	if got["title"] != "T" || article["text"] != "Body" {
		t.Fatalf("subtheme view: %v", got)
	}
	if tests, ok := got["tests"].([]any); !ok || len(tests) != 0 {
		t.Fatalf("tests list: %v", got["tests"])
	}

	// missing theme
	expect(t, e.do(http.MethodPost, "/themes/999/subthemes", teacher, map[string]string{"title": "T", "text": "Body"}), http.StatusNotFound)
}

func TestValidationAndNotFound(t *testing.T) {
	e := newEnv(t)
	teacher := e.user("teacher1", rbac.RoleTeacher)

	rr := e.do(http.MethodPost, "/themes", teacher, map[string]string{"title": "   "})
	expect(t, rr, http.StatusUnprocessableEntity)
	body := decode[map[string]any](t, rr)
	fields, _ := body["fields"].(map[string]any)
	if body["error"] != "validation failed" || fields["title"] == nil || body["input"] == nil {
		t.Fatalf("validation body: %v", body)
	}

	rr = e.do(http.MethodPost, "/themes", teacher, map[string]string{"title": strings.Repeat("x", 256)})
	expect(t, rr, http.StatusUnprocessableEntity)

	rr = e.do(http.MethodPost, "/themes", teacher, `{"title":`)
	expect(t, rr, http.StatusUnprocessableEntity)
	body = decode[map[string]any](t, rr)
	if body["input"] != `{"title":` {
		t.Fatalf("raw body not echoed: %v", body)
	}

	expect(t, e.do(http.MethodGet, "/themes/999", teacher, nil), http.StatusNotFound)
	expect(t, e.do(http.MethodGet, "/themes/abc", teacher, nil), http.StatusNotFound)
	expect(t, e.do(http.MethodDelete, "/themes/999", teacher, nil), http.StatusNotFound)
	if e.count("themes") != 0 {
		t.Fatalf("invalid input created rows")
	}
}

// buildTest creates theme/subtheme/test with two questions and returns the
// test path plus the answer ids: q1 has right {a,b} and wrong c; q2 has
// right d and wrong f.
func buildTest(t *testing.T, e *env, teacher string) (string, [2]int64, map[string]int64) {
	t.Helper()
	th := decode[content.Theme](t, e.do(http.MethodPost, "/themes", teacher, map[string]string{"title": "Algebra"}))
	st := decode[content.SubThemeDetail](t, e.do(http.MethodPost, fmt.Sprintf("/themes/%d/subthemes", th.ID), teacher,
		map[string]string{"title": "Equations", "text": "x+1=2"}))
	base := fmt.Sprintf("/themes/%d/subthemes/%d/tests", th.ID, st.ID)
	rr := e.do(http.MethodPost, base, teacher, map[string]string{"question": "Pick the right ones"})
	expect(t, rr, http.StatusCreated)
	tt := decode[exam.Test](t, rr)
	testPath := fmt.Sprintf("%s/%d", base, tt.ID)

	var qids [2]int64
	ans := map[string]int64{}
	spec := [][]struct {
		name  string
		right bool
	}{
		{{"a", true}, {"b", true}, {"c", false}},
		{{"d", true}, {"f", false}},
	}
	for i, answers := range spec {
		rr := e.do(http.MethodPost, testPath+"/questions", teacher, map[string]string{"text": fmt.Sprintf("Q%d", i+1)})
		expect(t, rr, http.StatusCreated)
		q := decode[exam.Question](t, rr)
		qids[i] = q.ID
		for _, a := range answers {
			rr := e.do(http.MethodPost, fmt.Sprintf("%s/questions/%d/answers", testPath, q.ID), teacher,
				map[string]any{"text": a.name, "is_right": a.right})
			expect(t, rr, http.StatusCreated)
			ans[a.name] = decode[exam.AnswerVariant](t, rr).ID
		}
	}
	return testPath, qids, ans
}

func TestRunAndScore(t *testing.T) {
	e := newEnv(t)
	teacher := e.user("teacher1", rbac.RoleTeacher)
	student := e.user("student1", rbac.RoleStudent)
	testPath, q, a := buildTest(t, e, teacher)

	// the form never carries the key
	rr := e.do(http.MethodGet, testPath+"/run", student, nil)
	expect(t, rr, http.StatusOK)
	if strings.Contains(rr.Body.String(), "is_right") {
		t.Fatalf("form leaks the key: %s", rr.Body.String())
	}
	rr = e.do(http.MethodGet, testPath, student, nil)
	if strings.Contains(rr.Body.String(), "is_right") {
		t.Fatalf("student test view leaks the key: %s", rr.Body.String())
	}
	rr = e.do(http.MethodGet, testPath, teacher, nil)
	if !strings.Contains(rr.Body.String(), "is_right") {
		t.Fatalf("teacher test view lacks the key: %s", rr.Body.String())
	}

	cases := []struct {
		name    string
		answers map[string][]int64
		correct int
		pct     float64
	}{
		{"all right", map[string][]int64{fmt.Sprint(q[0]): {a["a"], a["b"]}, fmt.Sprint(q[1]): {a["d"]}}, 2, 100},
		{"partial set", map[string][]int64{fmt.Sprint(q[0]): {a["a"]}, fmt.Sprint(q[1]): {a["d"]}}, 1, 50},
		{"wrong extra", map[string][]int64{fmt.Sprint(q[0]): {a["a"], a["b"], a["c"]}}, 0, 0},
		{"empty", map[string][]int64{}, 0, 0},
	}
	for _, c := range cases {
		rr := e.do(http.MethodPost, testPath+"/run", student, map[string]any{"answers": c.answers})
		expect(t, rr, http.StatusCreated)
		out := decode[struct {
			ResultID       int64   `json:"result_id"`
			CorrectCount   int     `json:"correct_count"`
			TotalQuestions int     `json:"total_questions"`
			Percentage     float64 `json:"percentage"`
		}](t, rr)
		if out.CorrectCount != c.correct || out.TotalQuestions != 2 || out.Percentage != c.pct || out.ResultID == 0 {
			t.Errorf("%s: %+v", c.name, out)
		}
	}

	rr = e.do(http.MethodPost, testPath+"/run", student, `{"answers":{"x":[1]}}`)
	expect(t, rr, http.StatusUnprocessableEntity)
	rr = e.do(http.MethodPost, testPath+"/run", student, map[string]any{"answers": map[string][]int64{fmt.Sprint(q[0]): {-3}}})
	expect(t, rr, http.StatusUnprocessableEntity)

	rr = e.do(http.MethodGet, "/me/results", student, nil)
	expect(t, rr, http.StatusOK)
	if got := decode[[]exam.Result](t, rr); len(got) != len(cases) {
		t.Fatalf("own results: %d", len(got))
	}
	if got := decode[[]exam.Result](t, e.do(http.MethodGet, "/me/results", teacher, nil)); len(got) != 0 {
		t.Fatalf("teacher sees student results: %+v", got)
	}
}

func TestScopeMismatchIsNotFound(t *testing.T) {
	e := newEnv(t)
	teacher := e.user("teacher1", rbac.RoleTeacher)
	testPath, q, a := buildTest(t, e, teacher)
	otherPath, oq, _ := buildTest(t, e, teacher)

	expect(t, e.do(http.MethodGet, fmt.Sprintf("%s/questions/%d", testPath, q[0]), teacher, nil), http.StatusOK)
	expect(t, e.do(http.MethodGet, fmt.Sprintf("%s/questions/%d", testPath, oq[0]), teacher, nil), http.StatusNotFound)
	expect(t, e.do(http.MethodDelete, fmt.Sprintf("%s/questions/%d/answers/%d", otherPath, oq[0], a["a"]), teacher, nil), http.StatusNotFound)
	expect(t, e.do(http.MethodGet, strings.Replace(testPath, "/themes/1/", "/themes/2/", 1), teacher, nil), http.StatusNotFound)
}

func TestDeleteThemeCascades(t *testing.T) {
	e := newEnv(t)
	teacher := e.user("teacher1", rbac.RoleTeacher)
	student := e.user("student1", rbac.RoleStudent)
	testPath, q, a := buildTest(t, e, teacher)
	expect(t, e.do(http.MethodPost, testPath+"/run", student,
		map[string]any{"answers": map[string][]int64{fmt.Sprint(q[0]): {a["a"]}}}), http.StatusCreated)

	expect(t, e.do(http.MethodDelete, "/themes/1", teacher, nil), http.StatusNoContent)
	for _, table := range []string{"themes", "subthemes", "articles", "tests", "test_questions", "test_answer_variants", "results", "result_items"} {
		if n := e.count(table); n != 0 {
			t.Errorf("%s: %d rows left", table, n)
		}
	}
}

func TestAccountFlow(t *testing.T) {
	e := newEnv(t)
	admin := e.user("root", rbac.RoleAdmin)

	rr := e.do(http.MethodPost, "/auth/register", "", map[string]string{"username": "newbie", "password": "long-enough"})
	expect(t, rr, http.StatusCreated)
	reg := decode[struct {
		AccessToken string       `json:"access_token"`
		User        auth.Account `json:"user"`
	}](t, rr)
	if reg.AccessToken == "" || reg.User.Role != rbac.RoleStudent || reg.User.IsAdmin {
		t.Fatalf("register: %+v", reg)
	}

	rr = e.do(http.MethodPost, "/auth/register", "", map[string]string{"username": "newbie", "password": "long-enough"})
	expect(t, rr, http.StatusUnprocessableEntity)
	if strings.Contains(rr.Body.String(), "long-enough") {
		t.Fatalf("password echoed: %s", rr.Body.String())
	}

	expect(t, e.do(http.MethodPost, "/auth/login", "", map[string]string{"username": "newbie", "password": "wrong-pass"}), http.StatusUnauthorized)
	rr = e.do(http.MethodPost, "/auth/login", "", map[string]string{"username": "newbie", "password": "long-enough"})
	expect(t, rr, http.StatusOK)
	if rr.Result().Cookies()[0].Name != authmw.SessionCookie {
		t.Fatalf("no session cookie")
	}
	tok := decode[map[string]any](t, rr)["access_token"].(string)

	// promote to teacher, then the new role applies immediately
	rr = e.do(http.MethodPatch, fmt.Sprintf("/users/%d", reg.User.ID), admin, map[string]string{"role": rbac.RoleTeacher})
	expect(t, rr, http.StatusOK)
	expect(t, e.do(http.MethodPost, "/themes", tok, map[string]string{"title": "Mine"}), http.StatusCreated)

	// invalid role
	expect(t, e.do(http.MethodPatch, fmt.Sprintf("/users/%d", reg.User.ID), admin, map[string]string{"role": "wizard"}), http.StatusUnprocessableEntity)

	// logout revokes the token
	expect(t, e.do(http.MethodPost, "/auth/logout", tok, nil), http.StatusNoContent)
	rr = e.do(http.MethodGet, "/themes", tok, nil)
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != rbac.LoginPath {
		t.Fatalf("revoked token still works: %d", rr.Code)
	}
}

func TestLastAdminCannotBeDemoted(t *testing.T) {
	e := newEnv(t)
	admin := e.user("root", rbac.RoleAdmin)
	rr := e.do(http.MethodPatch, "/users/1", admin, map[string]any{"is_admin": false, "role": rbac.RoleStudent})
	expect(t, rr, http.StatusUnprocessableEntity)
	expect(t, e.do(http.MethodGet, "/users", admin, nil), http.StatusOK)
}

func TestChangePassword(t *testing.T) {
	e := newEnv(t)
	student := e.user("student1", rbac.RoleStudent)
	expect(t, e.do(http.MethodPost, "/users/change-password", student,
		map[string]string{"old_password": "nope-nope", "new_password": "brand-new-pass"}), http.StatusUnprocessableEntity)
	expect(t, e.do(http.MethodPost, "/users/change-password", student,
		map[string]string{"old_password": "password-123", "new_password": "brand-new-pass"}), http.StatusNoContent)
	expect(t, e.do(http.MethodPost, "/auth/login", "",
		map[string]string{"username": "student1", "password": "brand-new-pass"}), http.StatusOK)
}

func TestEventsFeed(t *testing.T) {
	e := newEnv(t)
	admin := e.user("root", rbac.RoleAdmin)
	student := e.user("student1", rbac.RoleStudent)
	testPath, _, _ := buildTest(t, e, admin)
	expect(t, e.do(http.MethodPost, testPath+"/run", student, map[string]any{"answers": map[string][]int64{}}), http.StatusCreated)

	rr := e.do(http.MethodGet, "/events?after=0", admin, nil)
	expect(t, rr, http.StatusOK)
	got := decode[[]syncx.Event](t, rr)
	if len(got) != 1 || got[0].Type != syncx.TypeResultSubmitted {
		t.Fatalf("events: %+v", got)
	}
	if rr := e.do(http.MethodGet, "/events", student, nil); rr.Code != http.StatusSeeOther {
		t.Fatalf("student read the event feed: %d", rr.Code)
	}
}
