package exam

import (
	"context"
	"log"
	"strconv"

	"github.com/hackmathlogic/hackmath/internal/grading"
	"github.com/hackmathlogic/hackmath/internal/metrics"
	syncx "github.com/hackmathlogic/hackmath/internal/sync"
)

// EventSink receives a record of every scored submission.
type EventSink interface {
	Append(ctx context.Context, typ, key string, data any) error
}

type Service struct {
	store  Store
	events EventSink
}

// NewService wires the store and an optional event sink (nil disables events).
func NewService(store Store, events EventSink) *Service {
	return &Service{store: store, events: events}
}

func (s *Service) Store() Store { return s.store }

// Form returns the test without its answer key.
func (s *Service) Form(ctx context.Context, sc Scope) (TestForm, error) {
	d, err := s.store.GetTest(ctx, sc)
	if err != nil {
		return TestForm{}, err
	}
	return d.Form(), nil
}

// Submit records one attempt for userID and scores it from the stored rows.
// Every call creates a new result.
func (s *Service) Submit(ctx context.Context, sc Scope, userID int64, sub Submission) (Outcome, error) {
	detail, err := s.store.GetTest(ctx, sc)
	if err != nil {
		return Outcome{}, err
	}
	res, err := s.store.RecordResult(ctx, userID, detail.ID, sub.AnswerIDs())
	if err != nil {
		metrics.Submissions.WithLabelValues("failed").Inc()
		return Outcome{}, err
	}
	stored, err := s.store.ResultAnswerIDs(ctx, res.ID)
	if err != nil {
		metrics.Submissions.WithLabelValues("failed").Inc()
		return Outcome{}, err
	}
	report := grading.Score(detail.Key(), stored)
	metrics.ObserveSubmission(report.Percentage)

	out := Outcome{
		ResultID:        res.ID,
		TestID:          detail.ID,
		CreatedAt:       res.CreatedAt,
		Report:          report,
		SelectedAnswers: selectedByQuestion(detail, stored),
	}
	s.publish(ctx, userID, out)
	return out, nil
}

func (s *Service) ListResults(ctx context.Context, userID int64) ([]Result, error) {
	return s.store.ListResults(ctx, userID)
}

func (s *Service) publish(ctx context.Context, userID int64, o Outcome) {
	if s.events == nil {
		return
	}
	err := s.events.Append(ctx, syncx.TypeResultSubmitted, strconv.FormatInt(o.ResultID, 10), map[string]any{
		"result_id":       o.ResultID,
		"user_id":         userID,
		"test_id":         o.TestID,
		"correct_count":   o.CorrectCount,
		"total_questions": o.TotalQuestions,
		"percentage":      o.Percentage,
	})
	if err != nil {
		log.Printf("event log: result %d: %v", o.ResultID, err)
	}
}

// selectedByQuestion groups the stored answer ids under the questions of
// this test. Ids from other tests are left out.
func selectedByQuestion(d TestDetail, ids []int64) map[int64][]int64 {
	owner := map[int64]int64{}
	for _, q := range d.Questions {
		for _, a := range q.Answers {
			owner[a.ID] = q.ID
		}
	}
	out := map[int64][]int64{}
	for _, id := range ids {
		if qid, ok := owner[id]; ok {
			out[qid] = append(out[qid], id)
		}
	}
	return out
}
