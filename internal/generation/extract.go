package generation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/nextudy/nextudy-api/internal/domain"
)

var (
	errNoFlashcards = errors.New("no flashcards in response")
	errNoQuestions  = errors.New("no valid QCM question in response")
)

var fencedBlock = regexp.MustCompile("(?s)```[a-zA-Z]*[ \t]*\n?(.*?)```")

// decodeFirst hands each JSON candidate of an LLM answer to decode and
// stops at the first one decode accepts. Fenced payloads come before the
// rest of the text; prose and bracketed references like [1] are skipped.
func decodeFirst(text string, decode func(raw []byte) error) error {
	var lastErr error
	for _, raw := range jsonCandidates(text) {
		if err := decode(raw); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	if lastErr != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, lastErr)
	}
	return fmt.Errorf("%w: no JSON document found", ErrInvalidResponse)
}

// jsonCandidates lists fenced payloads first, then balanced fragments of
// the whole answer.
func jsonCandidates(text string) [][]byte {
	var out [][]byte
	for _, m := range fencedBlock.FindAllStringSubmatch(text, -1) {
		out = append(out, balancedPayloads(m[1])...)
	}
	return append(out, balancedPayloads(text)...)
}

func balancedPayloads(text string) [][]byte {
	var out [][]byte
	start := strings.IndexAny(text, "{[")
	for start >= 0 {
		if end := matchBracket(text, start); end > start {
			candidate := []byte(text[start : end+1])
			if json.Valid(candidate) && isPayload(candidate) {
				out = append(out, candidate)
			}
		}
		next := strings.IndexAny(text[start+1:], "{[")
		if next < 0 {
			break
		}
		start += next + 1
	}
	return out
}

// isPayload accepts objects and arrays whose first element is an object,
// so references like [1] in prose are skipped.
func isPayload(raw []byte) bool {
	if raw[0] == '{' {
		return true
	}
	rest := bytes.TrimLeft(raw[1:], " \t\r\n")
	return len(rest) > 0 && rest[0] == '{'
}

// matchBracket returns the index of the bracket closing text[start], or -1.
func matchBracket(text string, start int) int {
	var stack []byte
	inString, escaped := false, false

	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) == 0 || stack[len(stack)-1] != c {
				return -1
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return i
			}
		}
	}
	return -1
}

// ParseFlashcards decodes flashcards from an LLM answer. Both
// {"flashcards": [...]} and a bare array are accepted.
func ParseFlashcards(text string) ([]domain.Flashcard, error) {
	type card struct {
		Question string `json:"question"`
		Answer   string `json:"answer"`
		Front    string `json:"front"`
		Back     string `json:"back"`
	}

	var out []domain.Flashcard
	err := decodeFirst(text, func(raw []byte) error {
		var cards []card
		if raw[0] == '[' {
			if err := json.Unmarshal(raw, &cards); err != nil {
				return err
			}
		} else {
			var wrapper struct {
				Flashcards []card `json:"flashcards"`
				Cards      []card `json:"cards"`
			}
			if err := json.Unmarshal(raw, &wrapper); err != nil {
				return err
			}
			cards = append(wrapper.Flashcards, wrapper.Cards...)
		}

		out = make([]domain.Flashcard, 0, len(cards))
		for _, c := range cards {
			q, a := firstNonEmpty(c.Question, c.Front), firstNonEmpty(c.Answer, c.Back)
			if q == "" || a == "" {
				continue
			}
			out = append(out, domain.Flashcard{Question: q, Answer: a})
		}
		if len(out) == 0 {
			return errNoFlashcards
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func ParseQuiz(text string) ([]domain.QuizQuestion, error) {
	type question struct {
		Question     string   `json:"question"`
		Choices      []string `json:"choices"`
		Options      []string `json:"options"`
		CorrectIndex *int     `json:"correct_index"`
		Answer       *int     `json:"answer"`
		Explanation  string   `json:"explanation"`
	}

	var out []domain.QuizQuestion
	err := decodeFirst(text, func(raw []byte) error {
		var questions []question
		if raw[0] == '[' {
			if err := json.Unmarshal(raw, &questions); err != nil {
				return err
			}
		} else {
			var wrapper struct {
				Questions []question `json:"questions"`
				QCM       []question `json:"qcm"`
			}
			if err := json.Unmarshal(raw, &wrapper); err != nil {
				return err
			}
			questions = append(wrapper.Questions, wrapper.QCM...)
		}

		out = make([]domain.QuizQuestion, 0, len(questions))
		for _, q := range questions {
			choices := q.Choices
			if len(choices) == 0 {
				choices = q.Options
			}
			idx := q.CorrectIndex
			if idx == nil {
				idx = q.Answer
			}
			if idx == nil {
				continue
			}
			item := domain.QuizQuestion{
				Question:     strings.TrimSpace(q.Question),
				Choices:      trimAll(choices),
				CorrectIndex: *idx,
				Explanation:  strings.TrimSpace(q.Explanation),
			}
			if item.Validate() == nil {
				out = append(out, item)
			}
		}
		if len(out) == 0 {
			return errNoQuestions
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func trimAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.TrimSpace(s)
	}
	return out
}
