package grading

import "math"

// Answer is one selectable option of a question as seen by the grader.
type Answer struct {
	ID      int64
	IsRight bool
}

// Question is a minimal view of a test question needed for grading.
type Question struct {
	ID      int64
	Answers []Answer
}

type QuestionResult struct {
	QuestionID int64 `json:"question_id"`
	Correct    bool  `json:"correct"`
}

// Report is the outcome of grading one attempt.
type Report struct {
	CorrectCount   int              `json:"correct_count"`
	TotalQuestions int              `json:"total_questions"`
	Percentage     float64          `json:"percentage"`
	Questions      []QuestionResult `json:"questions"`
}

// Score grades a set of selected answer ids against the answer key of
// questions. A question is correct iff the selected ids that belong to it
// are exactly its right answers and it has at least one right answer.
// Selected ids that belong to none of the questions are ignored.
func Score(questions []Question, selected []int64) Report {
	sel := toSet(selected)
	rep := Report{
		TotalQuestions: len(questions),
		Questions:      make([]QuestionResult, 0, len(questions)),
	}
	for _, q := range questions {
		ok := gradeQuestion(q, sel)
		if ok {
			rep.CorrectCount++
		}
		rep.Questions = append(rep.Questions, QuestionResult{QuestionID: q.ID, Correct: ok})
	}
	rep.Percentage = Percentage(rep.CorrectCount, rep.TotalQuestions)
	return rep
}

func gradeQuestion(q Question, selected map[int64]struct{}) bool {
	correct := make(map[int64]struct{}, len(q.Answers))
	picked := make(map[int64]struct{}, len(q.Answers))
	for _, a := range q.Answers {
		if a.IsRight {
			correct[a.ID] = struct{}{}
		}
		if _, ok := selected[a.ID]; ok {
			picked[a.ID] = struct{}{}
		}
	}
	// A question without a right answer can never be answered correctly.
	if len(correct) == 0 {
		return false
	}
	return setEqual(correct, picked)
}

// Percentage returns correct/total*100 rounded to one decimal place,
// or 0 when there is nothing to grade.
func Percentage(correct, total int) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(correct)/float64(total)*1000) / 10
}

// helpers

func toSet(ids []int64) map[int64]struct{} {
	m := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		m[id] = struct{}{}
	}
	return m
}

func setEqual(a, b map[int64]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}
