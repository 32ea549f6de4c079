package exam

import (
	"errors"
	"sort"
	"time"

	"github.com/hackmathlogic/hackmath/internal/grading"
)

// ErrNotFound is returned when an id in a scope does not resolve inside its
// parent chain.
var ErrNotFound = errors.New("not found")

// Scope is the id chain from the URL. Only the ids needed by an operation
// have to be set.
type Scope struct {
	ThemeID    int64
	SubThemeID int64
	TestID     int64
	QuestionID int64
	AnswerID   int64
}

type Test struct {
	ID         int64  `json:"id"`
	Question   string `json:"question"` // prompt shown above the questions
	SubThemeID int64  `json:"subtheme_id"`
}

type AnswerVariant struct {
	ID         int64  `json:"id"`
	Text       string `json:"text"`
	QuestionID int64  `json:"question_id"`
	IsRight    bool   `json:"is_right"`
}

type Question struct {
	ID      int64           `json:"id"`
	Text    string          `json:"text"`
	TestID  int64           `json:"test_id"`
	Answers []AnswerVariant `json:"answers"`
}

// TestDetail is a test with its questions and the answer key.
type TestDetail struct {
	Test
	Questions []Question `json:"questions"`
}

// Choice is an answer variant without its right/wrong flag.
type Choice struct {
	ID   int64  `json:"id"`
	Text string `json:"text"`
}

type FormQuestion struct {
	ID      int64    `json:"id"`
	Text    string   `json:"text"`
	Choices []Choice `json:"choices"`
}

// TestForm is the student-safe view of a test (no answer key).
type TestForm struct {
	Test
	Questions []FormQuestion `json:"questions"`
}

// Form strips the answer key.
func (d TestDetail) Form() TestForm {
	f := TestForm{Test: d.Test, Questions: make([]FormQuestion, 0, len(d.Questions))}
	for _, q := range d.Questions {
		fq := FormQuestion{ID: q.ID, Text: q.Text, Choices: make([]Choice, 0, len(q.Answers))}
		for _, a := range q.Answers {
			fq.Choices = append(fq.Choices, Choice{ID: a.ID, Text: a.Text})
		}
		f.Questions = append(f.Questions, fq)
	}
	return f
}

// Key converts the test into the grader's view.
func (d TestDetail) Key() []grading.Question {
	out := make([]grading.Question, 0, len(d.Questions))
	for _, q := range d.Questions {
		gq := grading.Question{ID: q.ID, Answers: make([]grading.Answer, 0, len(q.Answers))}
		for _, a := range q.Answers {
			gq.Answers = append(gq.Answers, grading.Answer{ID: a.ID, IsRight: a.IsRight})
		}
		out = append(out, gq)
	}
	return out
}

type AnswerInput struct {
	Text    string
	IsRight bool
}

type Result struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	TestID    int64     `json:"test_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Submission maps question id to the answer ids selected for it.
type Submission struct {
	Answers map[int64][]int64
}

// AnswerIDs flattens the selections into a sorted set; which question an id
// was submitted under does not matter.
func (s Submission) AnswerIDs() []int64 {
	seen := map[int64]struct{}{}
	out := []int64{}
	for _, ids := range s.Answers {
		for _, id := range ids {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Outcome is the scored attempt returned to the learner.
type Outcome struct {
	ResultID  int64     `json:"result_id"`
	TestID    int64     `json:"test_id"`
	CreatedAt time.Time `json:"created_at"`
	grading.Report
	SelectedAnswers map[int64][]int64 `json:"selected_answers"`
}
