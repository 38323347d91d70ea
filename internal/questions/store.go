package questions

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"quiz-session-engine/internal/domain"
)

type mcqRecord struct {
	ID       string   `json:"id"`
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

type shortRecord struct {
	ID       string `json:"id"`
	Question string `json:"question"`
}

// MaxOptions is the number of option letters, A through Z.
const MaxOptions = 26

// Store holds the MCQ and short-answer lists of one quiz. It is never mutated
// after Load; accessors hand out copies.
type Store struct {
	mcq   []domain.Question
	short []domain.Question
}

// Load parses both feeds. Global indices address MCQ items first, then short answers.
func Load(mcqRaw, shortRaw []byte) (*Store, error) {
	var mcqRecords []mcqRecord
	if err := decode(mcqRaw, &mcqRecords); err != nil {
		return nil, fmt.Errorf("mcq questions: %w: %v", domain.ErrMalformedData, err)
	}
	var shortRecords []shortRecord
	if err := decode(shortRaw, &shortRecords); err != nil {
		return nil, fmt.Errorf("short questions: %w: %v", domain.ErrMalformedData, err)
	}

	s := &Store{
		mcq:   make([]domain.Question, 0, len(mcqRecords)),
		short: make([]domain.Question, 0, len(shortRecords)),
	}
	for i, rec := range mcqRecords {
		if strings.TrimSpace(rec.Question) == "" || len(rec.Options) == 0 {
			return nil, fmt.Errorf("mcq question %d: %w: missing prompt or options", i, domain.ErrMalformedData)
		}
		if len(rec.Options) > MaxOptions {
			return nil, fmt.Errorf("mcq question %d: %w: %d options, at most %d", i, domain.ErrMalformedData, len(rec.Options), MaxOptions)
		}
		s.mcq = append(s.mcq, domain.Question{
			ID:      idOr(rec.ID, "mcq-", i),
			Kind:    domain.KindMCQ,
			Prompt:  rec.Question,
			Options: append([]string(nil), rec.Options...),
		})
	}
	for i, rec := range shortRecords {
		if strings.TrimSpace(rec.Question) == "" {
			return nil, fmt.Errorf("short question %d: %w: missing prompt", i, domain.ErrMalformedData)
		}
		s.short = append(s.short, domain.Question{
			ID:     idOr(rec.ID, "short-", i),
			Kind:   domain.KindShort,
			Prompt: rec.Question,
		})
	}
	if s.Total() == 0 {
		return nil, domain.ErrEmptyQuestionSet
	}
	return s, nil
}

// LoadFeed is Load over a hosting-page feed.
func LoadFeed(feed domain.QuizFeed) (*Store, error) {
	return Load(feed.MCQ, feed.Short)
}

func decode(raw []byte, out any) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, out)
}

func idOr(id, prefix string, i int) string {
	if id != "" {
		return id
	}
	return prefix + strconv.Itoa(i)
}

func (s *Store) Total() int    { return len(s.mcq) + len(s.short) }
func (s *Store) MCQCount() int { return len(s.mcq) }

// At resolves a global index to its question.
func (s *Store) At(index int) (domain.Question, bool) {
	if index < 0 || index >= s.Total() {
		return domain.Question{}, false
	}
	if index < len(s.mcq) {
		return clone(s.mcq[index]), true
	}
	return clone(s.short[index-len(s.mcq)]), true
}

func (s *Store) MCQ() []domain.Question   { return cloneAll(s.mcq) }
func (s *Store) Short() []domain.Question { return cloneAll(s.short) }

func clone(q domain.Question) domain.Question {
	if q.Options != nil {
		q.Options = append([]string(nil), q.Options...)
	}
	return q
}

func cloneAll(qs []domain.Question) []domain.Question {
	out := make([]domain.Question, len(qs))
	for i, q := range qs {
		out[i] = clone(q)
	}
	return out
}

// OptionLetter returns the canonical uppercase letter for an option position.
func OptionLetter(i int) string {
	return string(rune('A' + i))
}

// OptionIndex is the inverse of OptionLetter; it reports false for anything
// that is not a single letter.
func OptionIndex(letter string) (int, bool) {
	letter = strings.ToUpper(strings.TrimSpace(letter))
	if len(letter) != 1 || letter[0] < 'A' || letter[0] > 'Z' {
		return 0, false
	}
	return int(letter[0] - 'A'), true
}
