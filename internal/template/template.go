package template

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/Knetic/govaluate"

	"github.com/nerrad567/gray-logic-ledstrip/internal/light"
)

// Variable names visible to expressions.
const (
	VarValue   = "value"
	VarPayload = "payload"
	VarRed     = "red"
	VarGreen   = "green"
	VarBlue    = "blue"
	VarHex     = "hex"
)

var functions = map[string]govaluate.ExpressionFunction{
	"jq":  jqFunc,
	"num": numFunc,
	"str": strFunc,
	"fmt": fmtFunc,
}

// Expression is a compiled template. It is safe for concurrent use.
type Expression struct {
	source string
	expr   *govaluate.EvaluableExpression
}

// Compile parses source into an Expression.
func Compile(source string) (*Expression, error) {
	expr, err := govaluate.NewEvaluableExpressionWithFunctions(source, functions)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrInvalidExpression, source, err)
	}
	return &Expression{source: source, expr: expr}, nil
}

// String returns the expression source.
func (e *Expression) String() string { return e.source }

// Evaluate runs the expression against params and returns the raw result.
func (e *Expression) Evaluate(params map[string]any) (any, error) {
	if params == nil {
		params = map[string]any{}
	}
	v, err := e.expr.Evaluate(params)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrEvaluation, e.source, err)
	}
	return v, nil
}

// Render implements light.Renderer.
func (e *Expression) Render(payload []byte) (string, error) {
	s := string(payload)
	v, err := e.Evaluate(map[string]any{VarValue: s, VarPayload: s})
	if err != nil {
		return "", err
	}
	return stringify(v)
}

// FormatColor implements light.ColorFormatter.
func (e *Expression) FormatColor(c light.Color) (string, error) {
	v, err := e.Evaluate(map[string]any{
		VarRed:   float64(c.R),
		VarGreen: float64(c.G),
		VarBlue:  float64(c.B),
		VarHex:   c.Hex(),
	})
	if err != nil {
		return "", err
	}
	return stringify(v)
}

// stringify turns an expression result into a payload string.
// Whole numbers print without a fractional part so "50" stays "50".
func stringify(v any) (string, error) {
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return t, nil
	case bool:
		return strconv.FormatBool(t), nil
	case float64:
		if t == math.Trunc(t) && !math.IsInf(t, 0) {
			return strconv.FormatFloat(t, 'f', 0, 64), nil
		}
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	case map[string]any, []any:
		b, err := json.Marshal(t)
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrEvaluation, err)
		}
		return string(b), nil
	default:
		return fmt.Sprint(t), nil
	}
}

var (
	_ light.Renderer       = (*Expression)(nil)
	_ light.ColorFormatter = (*Expression)(nil)
)
