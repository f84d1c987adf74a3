package rules

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sells-group/claim-intel/internal/model"
)

// Resolve walks a dot-notation path into the context. The context builder
// flattens most attributes to dotted keys, so an exact-key hit is tried
// first; otherwise the path is walked segment by segment through nested
// maps. Missing segments report ok=false.
func Resolve(ctx model.ClaimContext, path string) (any, bool) {
	if ctx == nil || path == "" {
		return nil, false
	}
	if v, ok := ctx[path]; ok {
		return v, v != nil
	}

	segments := strings.Split(path, ".")
	var current any = map[string]any(ctx)
	for _, seg := range segments {
		m, ok := current.(map[string]any)
		if !ok {
			if cc, isCtx := current.(model.ClaimContext); isCtx {
				m = map[string]any(cc)
			} else {
				return nil, false
			}
		}
		current, ok = m[seg]
		if !ok {
			return nil, false
		}
	}
	if current == nil {
		return nil, false
	}
	return current, true
}

// compare applies op between the resolved context value and the rule value.
// Unknown operators and type mismatches evaluate to false.
func compare(ctxVal any, op Op, ruleVal any) bool {
	switch op {
	case OpGT, OpGTE, OpLT, OpLTE:
		a, aok := toFloat(ctxVal)
		b, bok := toFloat(ruleVal)
		if !aok || !bok {
			return false
		}
		switch op {
		case OpGT:
			return a > b
		case OpGTE:
			return a >= b
		case OpLT:
			return a < b
		default:
			return a <= b
		}
	case OpEQ:
		return looseEqual(ctxVal, ruleVal)
	case OpNEQ:
		return !looseEqual(ctxVal, ruleVal)
	case OpContains:
		if items, ok := ctxVal.([]any); ok {
			for _, item := range items {
				if looseEqual(item, ruleVal) {
					return true
				}
			}
			return false
		}
		return strings.Contains(stringify(ctxVal), stringify(ruleVal))
	case OpIn:
		items, ok := ruleVal.([]any)
		if !ok {
			return false
		}
		for _, item := range items {
			if looseEqual(ctxVal, item) {
				return true
			}
		}
		return false
	}
	return false
}

// looseEqual compares numerically when both sides are numeric, otherwise by
// stringified value. Mirrors the forgiving equality the stored rules rely on.
func looseEqual(a, b any) bool {
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		return af == bf
	}
	return stringify(a) == stringify(b)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	}
	return 0, false
}

func stringify(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case bool:
		return strconv.FormatBool(s)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	}
	return fmt.Sprintf("%v", v)
}
