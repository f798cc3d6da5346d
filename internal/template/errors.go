package template

import "errors"

var (
	// ErrInvalidExpression is returned when an expression does not compile.
	ErrInvalidExpression = errors.New("template: invalid expression")

	// ErrEvaluation is returned when a compiled expression fails against a payload.
	ErrEvaluation = errors.New("template: evaluation failed")
)
