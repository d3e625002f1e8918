package report

import "errors"

var (
	ErrInvalidPractice = errors.New("practice must be intern or extern")
	ErrInvalidInput    = errors.New("invalid report input")
)
