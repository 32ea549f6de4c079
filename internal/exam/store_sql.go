package exam

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hackmathlogic/hackmath/internal/db"
)

type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(dbh *sql.DB) *SQLStore {
	return &SQLStore{db: dbh}
}

// ---------- tests ----------

func (s *SQLStore) ListTests(ctx context.Context, sc Scope) ([]Test, error) {
	if err := subThemeExists(ctx, s.db, sc); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id,question,subtheme_id FROM tests WHERE subtheme_id=$1 ORDER BY id`, sc.SubThemeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Test{}
	for rows.Next() {
		var t Test
		if err := rows.Scan(&t.ID, &t.Question, &t.SubThemeID); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *SQLStore) GetTest(ctx context.Context, sc Scope) (TestDetail, error) {
	t, err := resolveTest(ctx, s.db, sc)
	if err != nil {
		return TestDetail{}, err
	}
	qs, err := loadQuestions(ctx, s.db, t.ID)
	if err != nil {
		return TestDetail{}, err
	}
	return TestDetail{Test: t, Questions: qs}, nil
}

func (s *SQLStore) CreateTest(ctx context.Context, sc Scope, prompt string) (Test, error) {
	var out Test
	err := db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := subThemeExists(ctx, tx, sc); err != nil {
			return err
		}
		out = Test{Question: prompt, SubThemeID: sc.SubThemeID}
		return tx.QueryRowContext(ctx,
			`INSERT INTO tests (question, subtheme_id) VALUES ($1,$2) RETURNING id`,
			prompt, sc.SubThemeID).Scan(&out.ID)
	})
	return out, err
}

func (s *SQLStore) UpdateTest(ctx context.Context, sc Scope, prompt string) (Test, error) {
	var out Test
	err := db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		t, err := resolveTest(ctx, tx, sc)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE tests SET question=$1 WHERE id=$2`, prompt, t.ID); err != nil {
			return err
		}
		t.Question = prompt
		out = t
		return nil
	})
	return out, err
}

// DeleteTest removes the test with its questions, answers and every result
// recorded against it.
func (s *SQLStore) DeleteTest(ctx context.Context, sc Scope) error {
	return db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		t, err := resolveTest(ctx, tx, sc)
		if err != nil {
			return err
		}
		_, err = db.DeleteTestTree(ctx, tx, t.ID)
		return err
	})
}

// ---------- questions ----------

func (s *SQLStore) GetQuestion(ctx context.Context, sc Scope) (Question, error) {
	q, err := resolveQuestion(ctx, s.db, sc)
	if err != nil {
		return Question{}, err
	}
	q.Answers, err = loadAnswers(ctx, s.db, q.ID)
	if err != nil {
		return Question{}, err
	}
	return q, nil
}

func (s *SQLStore) CreateQuestion(ctx context.Context, sc Scope, text string) (Question, error) {
	var out Question
	err := db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		t, err := resolveTest(ctx, tx, sc)
		if err != nil {
			return err
		}
		out = Question{Text: text, TestID: t.ID, Answers: []AnswerVariant{}}
		return tx.QueryRowContext(ctx,
			`INSERT INTO test_questions (text, test_id) VALUES ($1,$2) RETURNING id`,
			text, t.ID).Scan(&out.ID)
	})
	return out, err
}

func (s *SQLStore) UpdateQuestion(ctx context.Context, sc Scope, text string) (Question, error) {
	var out Question
	err := db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		q, err := resolveQuestion(ctx, tx, sc)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE test_questions SET text=$1 WHERE id=$2`, text, q.ID); err != nil {
			return err
		}
		q.Text = text
		q.Answers, err = loadAnswers(ctx, tx, q.ID)
		out = q
		return err
	})
	return out, err
}

func (s *SQLStore) DeleteQuestion(ctx context.Context, sc Scope) error {
	return db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		q, err := resolveQuestion(ctx, tx, sc)
		if err != nil {
			return err
		}
		_, err = db.DeleteQuestionTree(ctx, tx, q.ID)
		return err
	})
}

// ---------- answers ----------

func (s *SQLStore) GetAnswer(ctx context.Context, sc Scope) (AnswerVariant, error) {
	return resolveAnswer(ctx, s.db, sc)
}

func (s *SQLStore) CreateAnswer(ctx context.Context, sc Scope, in AnswerInput) (AnswerVariant, error) {
	var out AnswerVariant
	err := db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		q, err := resolveQuestion(ctx, tx, sc)
		if err != nil {
			return err
		}
		out = AnswerVariant{Text: in.Text, QuestionID: q.ID, IsRight: in.IsRight}
		return tx.QueryRowContext(ctx,
			`INSERT INTO test_answer_variants (text, question_id, is_right) VALUES ($1,$2,$3) RETURNING id`,
			in.Text, q.ID, in.IsRight).Scan(&out.ID)
	})
	return out, err
}

func (s *SQLStore) UpdateAnswer(ctx context.Context, sc Scope, in AnswerInput) (AnswerVariant, error) {
	var out AnswerVariant
	err := db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		a, err := resolveAnswer(ctx, tx, sc)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE test_answer_variants SET text=$1, is_right=$2 WHERE id=$3`, in.Text, in.IsRight, a.ID); err != nil {
			return err
		}
		a.Text, a.IsRight = in.Text, in.IsRight
		out = a
		return nil
	})
	return out, err
}

func (s *SQLStore) DeleteAnswer(ctx context.Context, sc Scope) error {
	return db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		a, err := resolveAnswer(ctx, tx, sc)
		if err != nil {
			return err
		}
		_, err = db.DeleteAnswerTree(ctx, tx, a.ID)
		return err
	})
}

// ---------- results ----------

func (s *SQLStore) RecordResult(ctx context.Context, userID, testID int64, answerIDs []int64) (Result, error) {
	res := Result{UserID: userID, TestID: testID, CreatedAt: time.Now().UTC().Truncate(time.Second)}
	err := db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx,
			`INSERT INTO results (user_id, test_id, created_at) VALUES ($1,$2,$3) RETURNING id`,
			userID, testID, res.CreatedAt.Unix()).Scan(&res.ID); err != nil {
			return err
		}
		for _, id := range answerIDs {
			var one int
			err := tx.QueryRowContext(ctx, `SELECT 1 FROM test_answer_variants WHERE id=$1`, id).Scan(&one)
			if errors.Is(err, sql.ErrNoRows) {
				continue // dangling id: dropped silently
			}
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO result_items (result_id, answer_id) VALUES ($1,$2)`, res.ID, id); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	return res, nil
}

func (s *SQLStore) ResultAnswerIDs(ctx context.Context, resultID int64) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT answer_id FROM result_items WHERE result_id=$1 ORDER BY id`, resultID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (s *SQLStore) ListResults(ctx context.Context, userID int64) ([]Result, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id,user_id,test_id,created_at FROM results WHERE user_id=$1 ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Result{}
	for rows.Next() {
		var r Result
		var created int64
		if err := rows.Scan(&r.ID, &r.UserID, &r.TestID, &created); err != nil {
			return nil, err
		}
		r.CreatedAt = time.Unix(created, 0).UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}

// ---------- scope resolution ----------

func subThemeExists(ctx context.Context, q db.Queryer, sc Scope) error {
	var one int
	err := q.QueryRowContext(ctx, `SELECT 1 FROM subthemes WHERE id=$1 AND theme_id=$2`, sc.SubThemeID, sc.ThemeID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("subtheme %d in theme %d: %w", sc.SubThemeID, sc.ThemeID, ErrNotFound)
	}
	return err
}

func resolveTest(ctx context.Context, q db.Queryer, sc Scope) (Test, error) {
	var t Test
	err := q.QueryRowContext(ctx, `
		SELECT t.id, t.question, t.subtheme_id
		  FROM tests t
		  JOIN subthemes s ON s.id=t.subtheme_id
		 WHERE t.id=$1 AND s.id=$2 AND s.theme_id=$3`,
		sc.TestID, sc.SubThemeID, sc.ThemeID).Scan(&t.ID, &t.Question, &t.SubThemeID)
	if errors.Is(err, sql.ErrNoRows) {
		return Test{}, fmt.Errorf("test %d: %w", sc.TestID, ErrNotFound)
	}
	return t, err
}

func resolveQuestion(ctx context.Context, q db.Queryer, sc Scope) (Question, error) {
	var out Question
	err := q.QueryRowContext(ctx, `
		SELECT q.id, q.text, q.test_id
		  FROM test_questions q
		  JOIN tests t ON t.id=q.test_id
		  JOIN subthemes s ON s.id=t.subtheme_id
		 WHERE q.id=$1 AND t.id=$2 AND s.id=$3 AND s.theme_id=$4`,
		sc.QuestionID, sc.TestID, sc.SubThemeID, sc.ThemeID).Scan(&out.ID, &out.Text, &out.TestID)
	if errors.Is(err, sql.ErrNoRows) {
		return Question{}, fmt.Errorf("question %d: %w", sc.QuestionID, ErrNotFound)
	}
	return out, err
}

func resolveAnswer(ctx context.Context, q db.Queryer, sc Scope) (AnswerVariant, error) {
	var a AnswerVariant
	err := q.QueryRowContext(ctx, `
		SELECT a.id, a.text, a.question_id, a.is_right
		  FROM test_answer_variants a
		  JOIN test_questions q ON q.id=a.question_id
		  JOIN tests t ON t.id=q.test_id
		  JOIN subthemes s ON s.id=t.subtheme_id
		 WHERE a.id=$1 AND q.id=$2 AND t.id=$3 AND s.id=$4 AND s.theme_id=$5`,
		sc.AnswerID, sc.QuestionID, sc.TestID, sc.SubThemeID, sc.ThemeID).Scan(&a.ID, &a.Text, &a.QuestionID, &a.IsRight)
	if errors.Is(err, sql.ErrNoRows) {
		return AnswerVariant{}, fmt.Errorf("answer %d: %w", sc.AnswerID, ErrNotFound)
	}
	return a, err
}

func loadQuestions(ctx context.Context, q db.Queryer, testID int64) ([]Question, error) {
	rows, err := q.QueryContext(ctx, `SELECT id,text,test_id FROM test_questions WHERE test_id=$1 ORDER BY id`, testID)
	if err != nil {
		return nil, err
	}
	qs := []Question{}
	idx := map[int64]int{}
	for rows.Next() {
		var qq Question
		if err := rows.Scan(&qq.ID, &qq.Text, &qq.TestID); err != nil {
			rows.Close()
			return nil, err
		}
		qq.Answers = []AnswerVariant{}
		idx[qq.ID] = len(qs)
		qs = append(qs, qq)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	arows, err := q.QueryContext(ctx, `
		SELECT a.id, a.text, a.question_id, a.is_right
		  FROM test_answer_variants a
		  JOIN test_questions q ON q.id=a.question_id
		 WHERE q.test_id=$1
		 ORDER BY a.id`, testID)
	if err != nil {
		return nil, err
	}
	defer arows.Close()
	for arows.Next() {
		var a AnswerVariant
		if err := arows.Scan(&a.ID, &a.Text, &a.QuestionID, &a.IsRight); err != nil {
			return nil, err
		}
		if i, ok := idx[a.QuestionID]; ok {
			qs[i].Answers = append(qs[i].Answers, a)
		}
	}
	return qs, arows.Err()
}

func loadAnswers(ctx context.Context, q db.Queryer, questionID int64) ([]AnswerVariant, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id,text,question_id,is_right FROM test_answer_variants WHERE question_id=$1 ORDER BY id`, questionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []AnswerVariant{}
	for rows.Next() {
		var a AnswerVariant
		if err := rows.Scan(&a.ID, &a.Text, &a.QuestionID, &a.IsRight); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
