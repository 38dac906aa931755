package cypher

// builtinArity lists the exact argument count each builtin accepts, used to
// raise a SyntaxError naming the function on mismatch (spec.md §4.3).
var builtinArity = map[string]int{
	"id":         1,
	"labels":     1,
	"type":       1,
	"properties": 1,
	"count":      1,
}

func callFunction(row Row, params map[string]interface{}, call *FunctionCall) (interface{}, error) {
	want, known := builtinArity[call.Name]
	if !known {
		return nil, syntaxErr("unknown function %q", call.Name)
	}
	if len(call.Args) != want {
		return nil, syntaxErr("function %q expects %d argument(s), got %d", call.Name, want, len(call.Args))
	}

	switch call.Name {
	case "id":
		arg, err := evalExpr(row, params, call.Args[0])
		if err != nil {
			return nil, err
		}
		if n, ok := isNode(arg); ok {
			return int64(n.ID), nil
		}
		if r, ok := isRelationship(arg); ok {
			return int64(r.ID), nil
		}
		return nil, semanticErr("id() requires a node or relationship")

	case "labels":
		arg, err := evalExpr(row, params, call.Args[0])
		if err != nil {
			return nil, err
		}
		n, ok := isNode(arg)
		if !ok {
			return nil, semanticErr("labels() requires a node")
		}
		out := make([]interface{}, len(n.Labels))
		for i, l := range n.Labels {
			out[i] = l
		}
		return out, nil

	case "type":
		arg, err := evalExpr(row, params, call.Args[0])
		if err != nil {
			return nil, err
		}
		r, ok := isRelationship(arg)
		if !ok {
			return nil, semanticErr("type() requires a relationship")
		}
		return r.Type, nil

	case "properties":
		arg, err := evalExpr(row, params, call.Args[0])
		if err != nil {
			return nil, err
		}
		if n, ok := isNode(arg); ok {
			return n.Properties, nil
		}
		if r, ok := isRelationship(arg); ok {
			return r.Properties, nil
		}
		return nil, semanticErr("properties() requires a node or relationship")

	case "count":
		// Reached only for a use containsAggregate does not flag (outside
		// RETURN, or inside a map/list literal); Execute rejects flagged
		// RETURN items before clause evaluation begins (resolved Open
		// Question 1, spec.md §9/SPEC_FULL.md §4.3).
		return nil, notImplementedErr("count() aggregation is not implemented")

	default:
		return nil, syntaxErr("unknown function %q", call.Name)
	}
}

// containsAggregate reports whether expr references count(...) in itself,
// its function arguments, operator operands, or property-access bases, used
// to reject aggregate queries up front. Map and list literals are not
// searched.
func containsAggregate(expr Expression) bool {
	switch e := expr.(type) {
	case *FunctionCall:
		if e.Name == "count" {
			return true
		}
		for _, arg := range e.Args {
			if containsAggregate(arg) {
				return true
			}
		}
	case *BinaryOp:
		return containsAggregate(e.Left) || containsAggregate(e.Right)
	case *UnaryOp:
		return containsAggregate(e.Operand)
	case *PropertyAccess:
		return containsAggregate(e.Base)
	}
	return false
}
