package exam_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/hackmathlogic/hackmath/internal/db"
	"github.com/hackmathlogic/hackmath/internal/exam"
)

type fixture struct {
	db    *sql.DB
	store *exam.SQLStore
	scope exam.Scope // theme + subtheme set
	user  int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	dbh, err := db.Open(ctx, db.DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = dbh.Close() })

	f := &fixture{db: dbh, store: exam.NewSQLStore(dbh)}
	mustQueryID(t, dbh, &f.user, `INSERT INTO users (username, password_hash, is_admin, created_at) VALUES ('learner','x',0,0) RETURNING id`)
	mustQueryID(t, dbh, &f.scope.ThemeID, `INSERT INTO themes (title) VALUES ('Theme') RETURNING id`)
	mustQueryID(t, dbh, &f.scope.SubThemeID, `INSERT INTO subthemes (title, theme_id) VALUES ('Sub', $1) RETURNING id`, f.scope.ThemeID)
	return f
}

func mustQueryID(t *testing.T, dbh *sql.DB, dst *int64, q string, args ...any) {
	t.Helper()
	if err := dbh.QueryRow(q, args...).Scan(dst); err != nil {
		t.Fatalf("%s: %v", q, err)
	}
}

func (f *fixture) count(t *testing.T, table string) int {
	t.Helper()
	var n int
	if err := f.db.QueryRow(`SELECT COUNT(1) FROM ` + table).Scan(&n); err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}

// addTest creates a test with one question per entry of key; each entry lists
// the is_right flags of that question's answers.
func (f *fixture) addTest(t *testing.T, key ...[]bool) (exam.Scope, exam.TestDetail) {
	t.Helper()
	ctx := context.Background()
	tt, err := f.store.CreateTest(ctx, f.scope, "Solve")
	if err != nil {
		t.Fatalf("create test: %v", err)
	}
	sc := f.scope
	sc.TestID = tt.ID
	for _, flags := range key {
		q, err := f.store.CreateQuestion(ctx, sc, "Q")
		if err != nil {
			t.Fatalf("create question: %v", err)
		}
		qs := sc
		qs.QuestionID = q.ID
		for _, right := range flags {
			if _, err := f.store.CreateAnswer(ctx, qs, exam.AnswerInput{Text: "A", IsRight: right}); err != nil {
				t.Fatalf("create answer: %v", err)
			}
		}
	}
	d, err := f.store.GetTest(ctx, sc)
	if err != nil {
		t.Fatalf("get test: %v", err)
	}
	return sc, d
}

func TestTestTreeCRUD(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sc, d := f.addTest(t, []bool{true, false}, []bool{false, true, true})

	if len(d.Questions) != 2 || len(d.Questions[0].Answers) != 2 || len(d.Questions[1].Answers) != 3 {
		t.Fatalf("detail: %+v", d)
	}
	if d.Questions[0].ID > d.Questions[1].ID || d.Questions[1].Answers[0].ID > d.Questions[1].Answers[1].ID {
		t.Fatalf("not in insertion order: %+v", d)
	}

	list, err := f.store.ListTests(ctx, f.scope)
	if err != nil || len(list) != 1 {
		t.Fatalf("list: %+v %v", list, err)
	}

	up, err := f.store.UpdateTest(ctx, sc, "Solve again")
	if err != nil || up.Question != "Solve again" {
		t.Fatalf("update test: %+v %v", up, err)
	}

	qs := sc
	qs.QuestionID = d.Questions[0].ID
	q, err := f.store.UpdateQuestion(ctx, qs, "Q2")
	if err != nil || q.Text != "Q2" || len(q.Answers) != 2 {
		t.Fatalf("update question: %+v %v", q, err)
	}

	as := qs
	as.AnswerID = d.Questions[0].Answers[1].ID
	a, err := f.store.UpdateAnswer(ctx, as, exam.AnswerInput{Text: "B", IsRight: true})
	if err != nil || a.Text != "B" || !a.IsRight {
		t.Fatalf("update answer: %+v %v", a, err)
	}
	got, err := f.store.GetAnswer(ctx, as)
	if err != nil || got != a {
		t.Fatalf("get answer: %+v %v", got, err)
	}

	if err := f.store.DeleteAnswer(ctx, as); err != nil {
		t.Fatalf("delete answer: %v", err)
	}
	if err := f.store.DeleteAnswer(ctx, as); !errors.Is(err, exam.ErrNotFound) {
		t.Fatalf("delete answer twice: %v", err)
	}
	if err := f.store.DeleteQuestion(ctx, qs); err != nil {
		t.Fatalf("delete question: %v", err)
	}
	if f.count(t, "test_questions") != 1 || f.count(t, "test_answer_variants") != 3 {
		t.Fatalf("rows after question delete: q=%d a=%d", f.count(t, "test_questions"), f.count(t, "test_answer_variants"))
	}
}

func TestScopeMustMatchParents(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sc, d := f.addTest(t, []bool{true})
	_, other := f.addTest(t, []bool{true})

	wrongTheme := sc
	wrongTheme.ThemeID = 999
	if _, err := f.store.GetTest(ctx, wrongTheme); !errors.Is(err, exam.ErrNotFound) {
		t.Fatalf("wrong theme: %v", err)
	}

	// question of another test
	foreign := sc
	foreign.QuestionID = other.Questions[0].ID
	if _, err := f.store.GetQuestion(ctx, foreign); !errors.Is(err, exam.ErrNotFound) {
		t.Fatalf("foreign question: %v", err)
	}

	// answer of another question
	foreignAns := sc
	foreignAns.QuestionID = d.Questions[0].ID
	foreignAns.AnswerID = other.Questions[0].Answers[0].ID
	if err := f.store.DeleteAnswer(ctx, foreignAns); !errors.Is(err, exam.ErrNotFound) {
		t.Fatalf("foreign answer: %v", err)
	}
	if f.count(t, "test_answer_variants") != 2 {
		t.Fatalf("answer deleted through a foreign scope")
	}

	missingSub := f.scope
	missingSub.SubThemeID = 999
	if _, err := f.store.CreateTest(ctx, missingSub, "x"); !errors.Is(err, exam.ErrNotFound) {
		t.Fatalf("create under missing subtheme: %v", err)
	}
}

func TestRecordResultSkipsUnknownAnswers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, d := f.addTest(t, []bool{true, false})
	known := d.Questions[0].Answers[0].ID

	res, err := f.store.RecordResult(ctx, f.user, d.ID, []int64{known, 424242})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	ids, err := f.store.ResultAnswerIDs(ctx, res.ID)
	if err != nil {
		t.Fatalf("items: %v", err)
	}
	if len(ids) != 1 || ids[0] != known {
		t.Fatalf("items: %v", ids)
	}
	if res.CreatedAt.IsZero() || res.UserID != f.user || res.TestID != d.ID {
		t.Fatalf("result: %+v", res)
	}
}

func TestDeletingThemeRemovesResults(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, d := f.addTest(t, []bool{true, false}, []bool{true})
	if _, err := f.store.RecordResult(ctx, f.user, d.ID, []int64{d.Questions[0].Answers[0].ID, d.Questions[1].Answers[0].ID}); err != nil {
		t.Fatalf("record: %v", err)
	}

	if _, err := db.DeleteThemeTree(ctx, f.db, f.scope.ThemeID); err != nil {
		t.Fatalf("delete theme: %v", err)
	}
	for _, table := range []string{"themes", "subthemes", "tests", "test_questions", "test_answer_variants", "results", "result_items"} {
		if n := f.count(t, table); n != 0 {
			t.Errorf("%s: %d rows left", table, n)
		}
	}
	if f.count(t, "users") != 1 {
		t.Fatalf("user removed with the theme")
	}
}

func TestListResultsNewestFirst(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, d := f.addTest(t, []bool{true})
	first, _ := f.store.RecordResult(ctx, f.user, d.ID, nil)
	second, _ := f.store.RecordResult(ctx, f.user, d.ID, nil)

	list, err := f.store.ListResults(ctx, f.user)
	if err != nil || len(list) != 2 {
		t.Fatalf("list: %+v %v", list, err)
	}
	if list[0].ID != second.ID || list[1].ID != first.ID {
		t.Fatalf("order: %+v", list)
	}
	if other, _ := f.store.ListResults(ctx, f.user+1); len(other) != 0 {
		t.Fatalf("results leaked to another user: %+v", other)
	}
}
