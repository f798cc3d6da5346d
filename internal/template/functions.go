package template

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/savaki/jq"
)

// jqFunc with one argument unmarshals a JSON object. With two it applies the
// jq selector in the second argument and returns the result without quotes.
func jqFunc(args ...any) (any, error) {
	if len(args) == 0 || len(args) > 2 {
		return nil, fmt.Errorf("jq: want 1 or 2 arguments, got %d", len(args))
	}
	doc, ok := args[0].(string)
	if !ok {
		return nil, errors.New("jq: first argument is not a string")
	}

	if len(args) == 1 {
		data := make(map[string]any)
		if err := json.Unmarshal([]byte(doc), &data); err != nil {
			return nil, fmt.Errorf("jq: %w", err)
		}
		return data, nil
	}

	selector, ok := args[1].(string)
	if !ok {
		return nil, errors.New("jq: selector is not a string")
	}
	op, err := jq.Parse(selector)
	if err != nil {
		return nil, fmt.Errorf("jq: parsing selector %q: %w", selector, err)
	}
	out, err := op.Apply([]byte(doc))
	if err != nil {
		return nil, fmt.Errorf("jq: applying %q: %w", selector, err)
	}
	return strings.Trim(string(out), `"`), nil
}

func numFunc(args ...any) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("num: want 1 argument, got %d", len(args))
	}
	switch v := args[0].(type) {
	case float64:
		return v, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, fmt.Errorf("num: %w", err)
		}
		return f, nil
	}
	return nil, fmt.Errorf("num: unsupported type %T", args[0])
}

func strFunc(args ...any) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("str: want 1 argument, got %d", len(args))
	}
	return stringify(args[0])
}

// fmtFunc is fmt.Sprintf. govaluate hands every number over as float64, so
// whole numbers are converted to int64 to make verbs like %d and %02X work.
func fmtFunc(args ...any) (any, error) {
	if len(args) == 0 {
		return nil, errors.New("fmt: want at least 1 argument")
	}
	if len(args) == 1 {
		return stringify(args[0])
	}
	format, ok := args[0].(string)
	if !ok {
		return nil, errors.New("fmt: format is not a string")
	}
	rest := make([]any, len(args)-1)
	for i, a := range args[1:] {
		if f, ok := a.(float64); ok && f == math.Trunc(f) && math.Abs(f) < 1<<53 {
			rest[i] = int64(f)
			continue
		}
		rest[i] = a
	}
	return fmt.Sprintf(format, rest...), nil
}
