package domain

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestSnapshotJSONUsesEpochMillis(t *testing.T) {
	deadline := time.UnixMilli(1_700_000_123_456)
	snap := Snapshot{
		QuizID:       "quiz-1",
		CurrentIndex: 2,
		Answers:      map[int]string{0: "B"},
		Flags:        []int{2},
		Deadline:     deadline,
		SavedAt:      deadline.Add(-time.Minute),
	}
	data, err := json.Marshal(snap)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal raw: %v", err)
	}
	if raw["deadline"] != float64(1_700_000_123_456) {
		t.Fatalf("expected epoch millis deadline, got %v", raw["deadline"])
	}

	var back Snapshot
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !back.Deadline.Equal(deadline) || back.Answers[0] != "B" || back.CurrentIndex != 2 {
		t.Fatalf("unexpected snapshot %+v", back)
	}
}

func TestQuizFeedDurationFallback(t *testing.T) {
	if got := (QuizFeed{}).Duration(); got != 10*time.Minute {
		t.Fatalf("expected 10m fallback, got %v", got)
	}
	if got := (QuizFeed{TimeMinutes: 3}).Duration(); got != 3*time.Minute {
		t.Fatalf("expected 3m, got %v", got)
	}
}

func TestSubmissionErrorMatchesKindAndCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := error(&SubmissionError{Kind: ErrNetwork, Err: cause})
	if !errors.Is(err, ErrNetwork) || !errors.Is(err, cause) {
		t.Fatalf("expected kind and cause to match, got %v", err)
	}
	if errors.Is(err, ErrServer) {
		t.Fatalf("network error must not match server kind")
	}

	serverErr := &SubmissionError{Kind: ErrServer, StatusCode: 500, Message: "boom"}
	if serverErr.Error() != "server error: status 500: boom" {
		t.Fatalf("unexpected message %q", serverErr.Error())
	}
}
