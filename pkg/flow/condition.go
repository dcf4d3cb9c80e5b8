package flow

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ferrou/turnstile/pkg/domain"
)

// Condition expressions are single comparisons of the form
//
//	field op literal
//
// with ops >, >=, <, <=, ==, !=. The fields "total" and "balance" read the
// checkout's monetary amounts; their literals are written in major units
// ("total > 50" means $50) and compared in cents, so boundaries are exact:
// comparisons are strict, 50.00 does not satisfy "total > 50".
// "address_valid" and "payment_captured" read the corresponding flags and
// compare against true/false. Any other field name reads a custom field.

// ParseCondition compiles an expression into a predicate. An empty expression
// yields a nil predicate (always active).
func ParseCondition(expr string) (domain.Predicate, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, nil
	}

	field, op, lit, err := splitComparison(expr)
	if err != nil {
		return nil, err
	}

	switch field {
	case "total", "balance":
		cents, err := parseAmountCents(lit)
		if err != nil {
			return nil, fmt.Errorf("condition %q: %w", expr, err)
		}
		read := domain.Context.Total
		if field == "balance" {
			read = domain.Context.Balance
		}
		return func(c domain.Context) bool {
			return compareInt(read(c), op, cents)
		}, nil

	case "address_valid", "payment_captured":
		want, err := strconv.ParseBool(lit)
		if err != nil {
			return nil, fmt.Errorf("condition %q: expected true/false, got %q", expr, lit)
		}
		if op != "==" && op != "!=" {
			return nil, fmt.Errorf("condition %q: boolean fields support only == and !=", expr)
		}
		read := domain.Context.HasValidAddress
		if field == "payment_captured" {
			read = domain.Context.PaymentCaptured
		}
		return func(c domain.Context) bool {
			got := read(c)
			if op == "==" {
				return got == want
			}
			return got != want
		}, nil

	default:
		return customFieldPredicate(field, op, lit), nil
	}
}

// MustCondition is ParseCondition for statically known expressions.
func MustCondition(expr string) domain.Predicate {
	p, err := ParseCondition(expr)
	if err != nil {
		panic(err)
	}
	return p
}

var comparisonOps = []string{">=", "<=", "==", "!=", ">", "<"}

func splitComparison(expr string) (field, op, lit string, err error) {
	for _, candidate := range comparisonOps {
		if idx := strings.Index(expr, candidate); idx > 0 {
			field = strings.TrimSpace(expr[:idx])
			lit = strings.TrimSpace(expr[idx+len(candidate):])
			if field == "" || lit == "" {
				return "", "", "", fmt.Errorf("condition %q: expected 'field op value'", expr)
			}
			return field, candidate, strings.Trim(lit, `'"`), nil
		}
	}
	return "", "", "", fmt.Errorf("condition %q: no comparison operator", expr)
}

// parseAmountCents converts a major-unit decimal string to cents without
// going through floating point. At most two fractional digits are accepted.
func parseAmountCents(s string) (int64, error) {
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" {
		whole = "0"
	}
	major, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	cents := major * 100
	if frac != "" {
		if len(frac) > 2 {
			return 0, fmt.Errorf("invalid amount %q: at most two decimal places", s)
		}
		for len(frac) < 2 {
			frac += "0"
		}
		minor, err := strconv.ParseInt(frac, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid amount %q", s)
		}
		cents += minor
	}
	if neg {
		cents = -cents
	}
	return cents, nil
}

func compareInt(got int64, op string, want int64) bool {
	switch op {
	case ">":
		return got > want
	case ">=":
		return got >= want
	case "<":
		return got < want
	case "<=":
		return got <= want
	case "==":
		return got == want
	case "!=":
		return got != want
	}
	return false
}

// customFieldPredicate compares a custom field at evaluation time. Numeric
// values compare numerically, strings lexically; a missing field or a type
// the operator cannot handle evaluates to false rather than erroring the
// resolution.
func customFieldPredicate(field, op, lit string) domain.Predicate {
	return func(c domain.Context) bool {
		raw, ok := c.Field(field)
		if !ok {
			return false
		}
		if num, isNum := toFloat(raw); isNum {
			want, err := strconv.ParseFloat(lit, 64)
			if err != nil {
				return false
			}
			switch op {
			case ">":
				return num > want
			case ">=":
				return num >= want
			case "<":
				return num < want
			case "<=":
				return num <= want
			case "==":
				return num == want
			case "!=":
				return num != want
			}
			return false
		}
		got := fmt.Sprintf("%v", raw)
		switch op {
		case "==":
			return got == lit
		case "!=":
			return got != lit
		case ">":
			return got > lit
		case ">=":
			return got >= lit
		case "<":
			return got < lit
		case "<=":
			return got <= lit
		}
		return false
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
