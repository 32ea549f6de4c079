package db

import (
	"context"
	"fmt"
)

// The schema declares ON DELETE CASCADE on every parent edge. The routines
// below delete the same rows explicitly, leaf first, so a subtree disappears
// in one transaction even on a connection where FK enforcement is off.
//
// Every statement takes the root id as $1. The last statement deletes the
// root row; its affected-row count is returned (0 means it did not exist).

func testsSubtree(tests string) []string {
	questions := `SELECT id FROM test_questions WHERE test_id IN (` + tests + `)`
	answers := `SELECT id FROM test_answer_variants WHERE question_id IN (` + questions + `)`
	results := `SELECT id FROM results WHERE test_id IN (` + tests + `)`
	return []string{
		`DELETE FROM result_items WHERE answer_id IN (` + answers + `)`,
		`DELETE FROM result_items WHERE result_id IN (` + results + `)`,
		`DELETE FROM results WHERE test_id IN (` + tests + `)`,
		`DELETE FROM test_answer_variants WHERE question_id IN (` + questions + `)`,
		`DELETE FROM test_questions WHERE test_id IN (` + tests + `)`,
	}
}

var (
	themeCascade = append(
		testsSubtree(`SELECT t.id FROM tests t JOIN subthemes s ON s.id=t.subtheme_id WHERE s.theme_id=$1`),
		`DELETE FROM tests WHERE subtheme_id IN (SELECT id FROM subthemes WHERE theme_id=$1)`,
		`DELETE FROM articles WHERE subtheme_id IN (SELECT id FROM subthemes WHERE theme_id=$1)`,
		`DELETE FROM subthemes WHERE theme_id=$1`,
		`DELETE FROM themes WHERE id=$1`,
	)

	// Articles go before the subtheme itself; an already empty article set
	// is not an error.
	subthemeCascade = append(
		testsSubtree(`SELECT id FROM tests WHERE subtheme_id=$1`),
		`DELETE FROM tests WHERE subtheme_id=$1`,
		`DELETE FROM articles WHERE subtheme_id=$1`,
		`DELETE FROM subthemes WHERE id=$1`,
	)

	testCascade = append(
		testsSubtree(`SELECT id FROM tests WHERE id=$1`),
		`DELETE FROM tests WHERE id=$1`,
	)

	questionCascade = []string{
		`DELETE FROM result_items WHERE answer_id IN (SELECT id FROM test_answer_variants WHERE question_id=$1)`,
		`DELETE FROM test_answer_variants WHERE question_id=$1`,
		`DELETE FROM test_questions WHERE id=$1`,
	}

	answerCascade = []string{
		`DELETE FROM result_items WHERE answer_id=$1`,
		`DELETE FROM test_answer_variants WHERE id=$1`,
	}
)

func DeleteThemeTree(ctx context.Context, q Queryer, id int64) (int64, error) {
	return cascade(ctx, q, "theme", themeCascade, id)
}

func DeleteSubThemeTree(ctx context.Context, q Queryer, id int64) (int64, error) {
	return cascade(ctx, q, "subtheme", subthemeCascade, id)
}

func DeleteTestTree(ctx context.Context, q Queryer, id int64) (int64, error) {
	return cascade(ctx, q, "test", testCascade, id)
}

func DeleteQuestionTree(ctx context.Context, q Queryer, id int64) (int64, error) {
	return cascade(ctx, q, "question", questionCascade, id)
}

func DeleteAnswerTree(ctx context.Context, q Queryer, id int64) (int64, error) {
	return cascade(ctx, q, "answer", answerCascade, id)
}

func cascade(ctx context.Context, q Queryer, root string, stmts []string, id int64) (int64, error) {
	var n int64
	for _, stmt := range stmts {
		res, err := q.ExecContext(ctx, stmt, id)
		if err != nil {
			return 0, fmt.Errorf("db: delete %s %d: %w", root, id, err)
		}
		n, _ = res.RowsAffected()
	}
	return n, nil
}
