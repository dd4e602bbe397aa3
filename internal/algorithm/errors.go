package algorithm

import "errors"

var (
	ErrInvalidGrade  = errors.New("invalid grading")
	ErrInvalidPolicy = errors.New("invalid scheduling policy")
)
