package cypher

import (
	"strconv"

	"github.com/wyrmgraph/wyrm/pkg/storage"
)

// truthy implements spec.md §4.3's JavaScript-style truthiness for WHERE
// filtering: "", 0, null, false, undefined are falsy; everything else is
// truthy.
func truthy(v interface{}) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case int64:
		return x != 0
	case float64:
		return x != 0
	default:
		return true
	}
}

// toFloat64 coerces int64/float64 to float64; ok is false for anything else.
func toFloat64(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

// valuesEqual implements spec.md §4.3's resolved Open Question on numeric
// equality: convert both sides to float64 when either is a float, otherwise
// strict same-type equality.
func valuesEqual(a, b interface{}) bool {
	af, aIsNum := toFloat64(a)
	bf, bIsNum := toFloat64(b)
	if aIsNum && bIsNum {
		_, aIsFloat := a.(float64)
		_, bIsFloat := b.(float64)
		if aIsFloat || bIsFloat {
			return af == bf
		}
		return a == b
	}
	return a == b
}

// canonicalKey computes the default RETURN item key for an expression
// without an explicit alias (spec.md §4.3): Variable -> name; PropertyAccess
// -> base_key.property; FunctionCall -> name(arg_keys,...).
func canonicalKey(expr Expression) string {
	switch e := expr.(type) {
	case *Variable:
		return e.Name
	case *PropertyAccess:
		return canonicalKey(e.Base) + "." + e.Property
	case *FunctionCall:
		key := e.Name + "("
		for i, arg := range e.Args {
			if i > 0 {
				key += ","
			}
			key += canonicalKey(arg)
		}
		return key + ")"
	case *Literal:
		return literalKey(e.Value)
	case *Parameter:
		return "$" + e.Name
	case *BinaryOp:
		return canonicalKey(e.Left) + " " + e.Op + " " + canonicalKey(e.Right)
	case *UnaryOp:
		return e.Op + canonicalKey(e.Operand)
	default:
		return "expr"
	}
}

func literalKey(v interface{}) string {
	switch x := v.(type) {
	case string:
		return x
	case nil:
		return "null"
	case bool:
		if x {
			return "true"
		}
		return "false"
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	default:
		return "literal"
	}
}

func isNode(v interface{}) (*storage.Node, bool) {
	n, ok := v.(*storage.Node)
	return n, ok
}

func isRelationship(v interface{}) (*storage.Relationship, bool) {
	r, ok := v.(*storage.Relationship)
	return r, ok
}
