package ledger

import (
	"sort"
	"strings"
)

// Ledger maps global question indices to answers and tracks review flags.
// It is not safe for concurrent use; the engine serialises access.
type Ledger struct {
	answers map[int]string
	flags   map[int]struct{}
}

func New() *Ledger {
	return &Ledger{
		answers: make(map[int]string),
		flags:   make(map[int]struct{}),
	}
}

func (l *Ledger) Get(index int) (string, bool) {
	v, ok := l.answers[index]
	return v, ok
}

func (l *Ledger) Set(index int, value string) {
	l.answers[index] = value
}

// IsAnswered is true iff a value exists and is non-blank after trimming.
func (l *Ledger) IsAnswered(index int) bool {
	v, ok := l.answers[index]
	return ok && strings.TrimSpace(v) != ""
}

func (l *Ledger) AnsweredCount() int {
	n := 0
	for i := range l.answers {
		if l.IsAnswered(i) {
			n++
		}
	}
	return n
}

// ToggleFlag flips the review flag and returns the new state.
func (l *Ledger) ToggleFlag(index int) bool {
	if _, ok := l.flags[index]; ok {
		delete(l.flags, index)
		return false
	}
	l.flags[index] = struct{}{}
	return true
}

func (l *Ledger) IsFlagged(index int) bool {
	_, ok := l.flags[index]
	return ok
}

// Answers returns a copy of every keyed answer, blank ones included.
func (l *Ledger) Answers() map[int]string {
	out := make(map[int]string, len(l.answers))
	for i, v := range l.answers {
		out[i] = v
	}
	return out
}

// Flags returns the flagged indices in ascending order.
func (l *Ledger) Flags() []int {
	out := make([]int, 0, len(l.flags))
	for i := range l.flags {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

// Restore replaces the ledger contents, dropping indices outside [0, total).
func (l *Ledger) Restore(answers map[int]string, flags []int, total int) {
	l.Clear()
	for i, v := range answers {
		if i >= 0 && i < total {
			l.answers[i] = v
		}
	}
	for _, i := range flags {
		if i >= 0 && i < total {
			l.flags[i] = struct{}{}
		}
	}
}

func (l *Ledger) Clear() {
	l.answers = make(map[int]string)
	l.flags = make(map[int]struct{})
}
