package algorithm

import (
	"encoding"
	"fmt"
	"strconv"
	"strings"
)

// Quality is the three-level self assessment given after revealing an answer.
type Quality int

const (
	Incorrect Quality = iota + 1 // Could not recall.
	Uncertain                    // Recalled partially or with doubt.
	Correct                      // Recalled.
)

var (
	qualityNames  = [...]string{Incorrect: "incorrect", Uncertain: "uncertain", Correct: "correct"}
	qualityByName = map[string]Quality{
		"incorrect": Incorrect,
		"uncertain": Uncertain,
		"correct":   Correct,
	}
)

var (
	_ fmt.Stringer             = Quality(0)
	_ encoding.TextMarshaler   = Quality(0)
	_ encoding.TextUnmarshaler = (*Quality)(nil)
)

// IsValid reports whether q is one of Incorrect, Uncertain, Correct.
func (q Quality) IsValid() bool {
	return q >= Incorrect && q <= Correct
}

// String returns the lower-case name, or "Quality(n)" for invalid values.
func (q Quality) String() string {
	if q.IsValid() {
		return qualityNames[q]
	}
	return fmt.Sprintf("Quality(%d)", int(q))
}

// MarshalText implements encoding.TextMarshaler.
func (q Quality) MarshalText() ([]byte, error) {
	if !q.IsValid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidGrade, int(q))
	}
	return []byte(qualityNames[q]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (q *Quality) UnmarshalText(text []byte) error {
	v, err := ParseQuality(string(text))
	if err != nil {
		return err
	}
	*q = v
	return nil
}

// ParseQuality accepts "1".."3" or a quality name.
func ParseQuality(s string) (Quality, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if v, ok := qualityByName[s]; ok {
		return v, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || !Quality(n).IsValid() {
		return 0, fmt.Errorf("%w: %q", ErrInvalidGrade, s)
	}
	return Quality(n), nil
}
