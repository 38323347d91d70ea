package domain

import (
	"encoding/json"
	"time"
)

// QuestionKind distinguishes multiple-choice from short-answer questions.
type QuestionKind string

const (
	KindMCQ   QuestionKind = "mcq"
	KindShort QuestionKind = "short"
)

// Question is a single immutable quiz item.
type Question struct {
	ID      string       `json:"id"`
	Kind    QuestionKind `json:"kind"`
	Prompt  string       `json:"prompt"`
	Options []string     `json:"options,omitempty"` // MCQ only
}

// QuizFeed is the raw question payload a hosting page hands to the engine.
// MCQ and Short are kept raw so that parsing failures surface at load time.
type QuizFeed struct {
	ID          string          `json:"id"`
	MCQ         json.RawMessage `json:"mcq_questions"`
	Short       json.RawMessage `json:"short_questions"`
	TimeMinutes int             `json:"quiz_time"`
}

// DefaultQuizMinutes is used when a feed carries no quiz time.
const DefaultQuizMinutes = 10

// Duration returns the configured quiz length, falling back to DefaultQuizMinutes.
func (f QuizFeed) Duration() time.Duration {
	if f.TimeMinutes <= 0 {
		return DefaultQuizMinutes * time.Minute
	}
	return time.Duration(f.TimeMinutes) * time.Minute
}

// Snapshot is the persisted representation of session progress.
type Snapshot struct {
	QuizID       string
	CurrentIndex int
	Completed    bool
	Answers      map[int]string
	Flags        []int
	Deadline     time.Time
	SavedAt      time.Time
}

type snapshotJSON struct {
	QuizID       string         `json:"quizId"`
	CurrentIndex int            `json:"currentIndex"`
	Completed    bool           `json:"completed,omitempty"`
	Answers      map[int]string `json:"answers"`
	Flags        []int          `json:"flags"`
	Deadline     int64          `json:"deadline"`
	SavedAt      int64          `json:"savedAt"`
}

// MarshalJSON stores timestamps as epoch milliseconds.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	answers := s.Answers
	if answers == nil {
		answers = map[int]string{}
	}
	flags := s.Flags
	if flags == nil {
		flags = []int{}
	}
	return json.Marshal(snapshotJSON{
		QuizID:       s.QuizID,
		CurrentIndex: s.CurrentIndex,
		Completed:    s.Completed,
		Answers:      answers,
		Flags:        flags,
		Deadline:     s.Deadline.UnixMilli(),
		SavedAt:      s.SavedAt.UnixMilli(),
	})
}

func (s *Snapshot) UnmarshalJSON(data []byte) error {
	var raw snapshotJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = Snapshot{
		QuizID:       raw.QuizID,
		CurrentIndex: raw.CurrentIndex,
		Completed:    raw.Completed,
		Answers:      raw.Answers,
		Flags:        raw.Flags,
		Deadline:     time.UnixMilli(raw.Deadline),
		SavedAt:      time.UnixMilli(raw.SavedAt),
	}
	return nil
}

// Submission is the final answer set posted to the results endpoint.
type Submission struct {
	Answers        map[int]string `json:"user_answers"`
	Flagged        map[int]bool   `json:"flagged_questions"`
	TotalQuestions int            `json:"total_questions"`
}

// SubmissionAck is the decoded success response of the results endpoint.
type SubmissionAck struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}
