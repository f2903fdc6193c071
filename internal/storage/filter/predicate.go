package filter

import (
	"fmt"
	"strings"

	"github.com/louisbranch/agentbond/internal/campaign/event"
	"go.einride.tech/aip/filtering"
	expr "google.golang.org/genproto/googleapis/api/expr/v1alpha1"
)

// Predicate evaluates a fact against a parsed filter expression.
type Predicate func(evt event.Event) bool

// ParseEventPredicate parses an AIP-160 filter expression into an in-memory
// predicate. The same declarations back ParseEventFilter, so both store
// implementations accept the same expressions. An empty filter matches
// everything.
func ParseEventPredicate(filterStr string) (Predicate, error) {
	if strings.TrimSpace(filterStr) == "" {
		return func(event.Event) bool { return true }, nil
	}

	decls, err := EventDeclarations()
	if err != nil {
		return nil, fmt.Errorf("create declarations: %w", err)
	}

	parsed, err := filtering.ParseFilterString(filterStr, decls)
	if err != nil {
		return nil, fmt.Errorf("parse filter: %w", err)
	}

	return predicateExpr(parsed.CheckedExpr.Expr)
}

func predicateExpr(e *expr.Expr) (Predicate, error) {
	if e == nil {
		return nil, fmt.Errorf("nil expression")
	}

	switch kind := e.ExprKind.(type) {
	case *expr.Expr_CallExpr:
		return predicateCall(kind.CallExpr)
	default:
		return nil, fmt.Errorf("unsupported expression type: %T", kind)
	}
}

func predicateCall(call *expr.Expr_Call) (Predicate, error) {
	switch call.Function {
	case "_&&_", "AND":
		return predicateLogical(call.Args, true)
	case "_||_", "OR":
		return predicateLogical(call.Args, false)
	case "_==_", "=":
		return predicateComparison(call.Args, "=")
	case "_!=_", "!=":
		return predicateComparison(call.Args, "!=")
	case "_<_", "<":
		return predicateComparison(call.Args, "<")
	case "_<=_", "<=":
		return predicateComparison(call.Args, "<=")
	case "_>_", ">":
		return predicateComparison(call.Args, ">")
	case "_>=_", ">=":
		return predicateComparison(call.Args, ">=")
	default:
		return nil, fmt.Errorf("unsupported function: %s", call.Function)
	}
}

func predicateLogical(args []*expr.Expr, conjunction bool) (Predicate, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("logical operator requires 2 arguments")
	}

	left, err := predicateExpr(args[0])
	if err != nil {
		return nil, err
	}

	right, err := predicateExpr(args[1])
	if err != nil {
		return nil, err
	}

	if conjunction {
		return func(evt event.Event) bool { return left(evt) && right(evt) }, nil
	}
	return func(evt event.Event) bool { return left(evt) || right(evt) }, nil
}

func predicateComparison(args []*expr.Expr, op string) (Predicate, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("comparison requires 2 arguments")
	}

	field, err := extractFieldName(args[0])
	if err != nil {
		return nil, err
	}
	if _, ok := fieldMapping[field]; !ok {
		return nil, fmt.Errorf("unknown field: %s", field)
	}

	value, err := extractValue(args[1])
	if err != nil {
		return nil, err
	}

	switch field {
	case "campaign_id":
		bound, err := asInt64(value)
		if err != nil {
			return nil, fmt.Errorf("field campaign_id: %w", err)
		}
		return func(evt event.Event) bool {
			return compareInt64(int64(evt.CampaignID), bound, op)
		}, nil
	case "seq":
		bound, err := asInt64(value)
		if err != nil {
			return nil, fmt.Errorf("field seq: %w", err)
		}
		return func(evt event.Event) bool {
			return compareInt64(int64(evt.Seq), bound, op)
		}, nil
	case "type":
		bound, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("field type requires a string value")
		}
		return func(evt event.Event) bool {
			return compareString(string(evt.Type), bound, op)
		}, nil
	case "actor":
		bound, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("field actor requires a string value")
		}
		return func(evt event.Event) bool {
			return compareString(evt.Actor, bound, op)
		}, nil
	case "ts":
		bound, err := asInt64(value)
		if err != nil {
			return nil, fmt.Errorf("field ts: %w", err)
		}
		return func(evt event.Event) bool {
			return compareInt64(evt.Timestamp.UTC().UnixMilli(), bound, op)
		}, nil
	default:
		return nil, fmt.Errorf("unknown field: %s", field)
	}
}

func asInt64(value any) (int64, error) {
	switch v := value.(type) {
	case int64:
		return v, nil
	case uint64:
		return int64(v), nil
	default:
		return 0, fmt.Errorf("requires an integer value, got %T", value)
	}
}

func compareInt64(a, b int64, op string) bool {
	switch op {
	case "=":
		return a == b
	case "!=":
		return a != b
	case "<":
		return a < b
	case "<=":
		return a <= b
	case ">":
		return a > b
	case ">=":
		return a >= b
	default:
		return false
	}
}

func compareString(a, b string, op string) bool {
	switch op {
	case "=":
		return a == b
	case "!=":
		return a != b
	case "<":
		return a < b
	case "<=":
		return a <= b
	case ">":
		return a > b
	case ">=":
		return a >= b
	default:
		return false
	}
}
