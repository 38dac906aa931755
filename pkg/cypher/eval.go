package cypher

// Row is one accumulated binding: variable name -> bound value (*storage.Node,
// *storage.Relationship, or a plain scalar/map/list produced by expression
// evaluation).
type Row map[string]interface{}

func (r Row) clone() Row {
	out := make(Row, len(r)+1)
	for k, v := range r {
		out[k] = v
	}
	return out
}

// evalExpr walks an expression tree against one binding row and the query's
// parameters, per spec.md §4.3's expression evaluation rules.
func evalExpr(row Row, params map[string]interface{}, expr Expression) (interface{}, error) {
	switch e := expr.(type) {
	case *Literal:
		return e.Value, nil

	case *Parameter:
		v, ok := params[e.Name]
		if !ok {
			return nil, paramMissingErr(e.Name)
		}
		return v, nil

	case *Variable:
		v, ok := row[e.Name]
		if !ok {
			return nil, semanticErr("Variable `%s` not defined", e.Name)
		}
		return v, nil

	case *PropertyAccess:
		base, err := evalExpr(row, params, e.Base)
		if err != nil {
			return nil, err
		}
		return evalPropertyAccess(base, e.Property), nil

	case *MapLiteral:
		out := make(map[string]interface{}, len(e.Keys))
		for _, k := range e.Keys {
			v, err := evalExpr(row, params, e.Entries[k])
			if err != nil {
				return nil, err
			}
			out[k] = v
		}
		return out, nil

	case *ListLiteral:
		out := make([]interface{}, 0, len(e.Items))
		for _, item := range e.Items {
			v, err := evalExpr(row, params, item)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil

	case *UnaryOp:
		return evalUnary(row, params, e)

	case *BinaryOp:
		return evalBinary(row, params, e)

	case *FunctionCall:
		return callFunction(row, params, e)

	default:
		return nil, semanticErr("unsupported expression kind")
	}
}

// evalPropertyAccess reads `base.property`: from a Node/Relationship's
// property map, or from a plain map value; anything else yields nil
// ("undefined" in spec.md §4.3's terms).
func evalPropertyAccess(base interface{}, property string) interface{} {
	if n, ok := isNode(base); ok {
		return n.Properties[property]
	}
	if r, ok := isRelationship(base); ok {
		return r.Properties[property]
	}
	if m, ok := base.(map[string]interface{}); ok {
		return m[property]
	}
	return nil
}

func evalUnary(row Row, params map[string]interface{}, e *UnaryOp) (interface{}, error) {
	operand, err := evalExpr(row, params, e.Operand)
	if err != nil {
		return nil, err
	}
	switch e.Op {
	case "NOT":
		return !truthy(operand), nil
	case "-":
		switch n := operand.(type) {
		case int64:
			return -n, nil
		case float64:
			return -n, nil
		default:
			return nil, semanticErr("cannot negate a non-numeric value")
		}
	default:
		return nil, semanticErr("unsupported unary operator %q", e.Op)
	}
}

func evalBinary(row Row, params map[string]interface{}, e *BinaryOp) (interface{}, error) {
	if e.Op == "AND" {
		left, err := evalExpr(row, params, e.Left)
		if err != nil {
			return nil, err
		}
		if !truthy(left) {
			return false, nil
		}
		right, err := evalExpr(row, params, e.Right)
		if err != nil {
			return nil, err
		}
		return truthy(right), nil
	}
	if e.Op == "OR" {
		left, err := evalExpr(row, params, e.Left)
		if err != nil {
			return nil, err
		}
		if truthy(left) {
			return true, nil
		}
		right, err := evalExpr(row, params, e.Right)
		if err != nil {
			return nil, err
		}
		return truthy(right), nil
	}

	left, err := evalExpr(row, params, e.Left)
	if err != nil {
		return nil, err
	}
	right, err := evalExpr(row, params, e.Right)
	if err != nil {
		return nil, err
	}
	return applyOperator(e.Op, left, right)
}
