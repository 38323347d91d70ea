package engine

import (
	"quiz-session-engine/internal/domain"
	"quiz-session-engine/internal/timer"
)

// Renderer is the UI port. The engine owns no presentation knowledge; it
// hands fully computed views to whatever implements this interface.
//
// The Render methods are called with the engine lock held and must not call
// back into the Engine. Notify, Confirm and Redirect are called without it.
type Renderer interface {
	RenderQuestion(QuestionView)
	RenderCompletion(Tally)
	RenderTimer(TimerView)
	RenderNav(NavView)
	RenderQuestionList([]ListItem)
	Notify(Notification)
	// Confirm asks the user before a manual submission; false aborts it.
	Confirm(prompt string) bool
	Redirect(url string)
}

type OptionView struct {
	Letter   string `json:"letter"`
	Text     string `json:"text"`
	Selected bool   `json:"selected"`
}

// QuestionView is everything needed to draw the current question.
type QuestionView struct {
	Index       int                 `json:"index"`
	Number      int                 `json:"number"`
	Total       int                 `json:"total"`
	ID          string              `json:"id"`
	Kind        domain.QuestionKind `json:"kind"`
	Prompt      string              `json:"prompt"`
	Instruction string              `json:"instruction"`
	Options     []OptionView        `json:"options,omitempty"`
	Answer      string              `json:"answer"`
	Answered    bool                `json:"answered"`
	Flagged     bool                `json:"flagged"`
	Final       bool                `json:"final"`
	Status      string              `json:"status"`
}

// Tally is shown on the completion screen.
type Tally struct {
	Answered   int `json:"answered"`
	Unanswered int `json:"unanswered"`
	Flagged    int `json:"flagged"`
	Total      int `json:"total"`
}

// NavAction names the operation a navigation control triggers.
type NavAction string

const (
	ActionNext     NavAction = "next"
	ActionPrevious NavAction = "previous"
)

// NavView describes the navigation controls. On the completion screen the
// next control reads "Review Quiz" and its NextAction is ActionPrevious, which
// re-enters the last question; Next itself is a no-op there.
type NavView struct {
	PreviousEnabled bool      `json:"previousEnabled"`
	NextLabel       string    `json:"nextLabel"`
	NextAction      NavAction `json:"nextAction"`
	SubmitVisible   bool      `json:"submitVisible"`
	SubmitEnabled   bool      `json:"submitEnabled"`
	FlagVisible     bool      `json:"flagVisible"`
}

type TimerView struct {
	Remaining int        `json:"remaining"`
	Text      string     `json:"text"`
	Band      timer.Band `json:"band"`
}

// ListItem is one entry of the question index picker.
type ListItem struct {
	Index    int  `json:"index"`
	Number   int  `json:"number"`
	Current  bool `json:"current"`
	Answered bool `json:"answered"`
	Flagged  bool `json:"flagged"`
}

type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

type Notification struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

const (
	labelNext   = "Next"
	labelFinish = "Finish"
	labelReview = "Review Quiz"

	instructionMCQ   = "Select one:"
	instructionShort = "Type your answer here:"

	statusAnswered   = "Answered"
	statusUnanswered = "Not yet answered"
	statusFinal      = " (Final Question)"

	confirmPrompt  = "Are you sure you want to submit your quiz? You cannot change answers after submission."
	timeUpMessage  = "Time is up! Submitting your quiz..."
	successMessage = "Quiz submitted successfully!"
)
