package exam

import "context"

type Store interface {
	ListTests(ctx context.Context, s Scope) ([]Test, error)
	GetTest(ctx context.Context, s Scope) (TestDetail, error) // full test, with answer key
	CreateTest(ctx context.Context, s Scope, prompt string) (Test, error)
	UpdateTest(ctx context.Context, s Scope, prompt string) (Test, error)
	DeleteTest(ctx context.Context, s Scope) error

	GetQuestion(ctx context.Context, s Scope) (Question, error)
	CreateQuestion(ctx context.Context, s Scope, text string) (Question, error)
	UpdateQuestion(ctx context.Context, s Scope, text string) (Question, error)
	DeleteQuestion(ctx context.Context, s Scope) error

	GetAnswer(ctx context.Context, s Scope) (AnswerVariant, error)
	CreateAnswer(ctx context.Context, s Scope, in AnswerInput) (AnswerVariant, error)
	UpdateAnswer(ctx context.Context, s Scope, in AnswerInput) (AnswerVariant, error)
	DeleteAnswer(ctx context.Context, s Scope) error

	// RecordResult creates a result and one item per existing answer id.
	// Ids that do not resolve to an answer are skipped.
	RecordResult(ctx context.Context, userID, testID int64, answerIDs []int64) (Result, error)
	ResultAnswerIDs(ctx context.Context, resultID int64) ([]int64, error)
	ListResults(ctx context.Context, userID int64) ([]Result, error)
}
