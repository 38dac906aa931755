package cypher

import "strconv"

// applyOperator implements the binary operator table from spec.md §4.3.
// AND/OR short-circuit in evalBinary before reaching here; every other
// operator is handled uniformly regardless of operand type, deferring to
// valuesEqual/toFloat64 for the numeric-vs-string distinctions the table
// requires.
func applyOperator(op string, left, right interface{}) (interface{}, error) {
	switch op {
	case "=":
		return valuesEqual(left, right), nil
	case "<>":
		return !valuesEqual(left, right), nil
	case "<", ">", "<=", ">=":
		return compareNumeric(op, left, right)
	case "+":
		if ls, ok := left.(string); ok {
			return ls + stringify(right), nil
		}
		if rs, ok := right.(string); ok {
			return stringify(left) + rs, nil
		}
		return arithmetic("+", left, right)
	case "-", "*", "/", "%":
		return arithmetic(op, left, right)
	case "IN":
		return evalIn(left, right)
	default:
		return nil, semanticErr("unsupported operator %q", op)
	}
}

func compareNumeric(op string, left, right interface{}) (interface{}, error) {
	lf, lok := toFloat64(left)
	rf, rok := toFloat64(right)
	if !lok || !rok {
		return nil, semanticErr("operator %q requires numeric operands", op)
	}
	switch op {
	case "<":
		return lf < rf, nil
	case ">":
		return lf > rf, nil
	case "<=":
		return lf <= rf, nil
	case ">=":
		return lf >= rf, nil
	}
	return nil, semanticErr("unreachable comparison operator %q", op)
}

func arithmetic(op string, left, right interface{}) (interface{}, error) {
	lf, lok := toFloat64(left)
	rf, rok := toFloat64(right)
	if !lok || !rok {
		return nil, semanticErr("operator %q requires numeric operands", op)
	}
	_, lIsFloat := left.(float64)
	_, rIsFloat := right.(float64)
	resultIsFloat := lIsFloat || rIsFloat

	var result float64
	switch op {
	case "+":
		result = lf + rf
	case "-":
		result = lf - rf
	case "*":
		result = lf * rf
	case "/":
		if rf == 0 {
			return nil, semanticErr("division by zero")
		}
		result = lf / rf
	case "%":
		if rf == 0 {
			return nil, semanticErr("division by zero")
		}
		li, ri := int64(lf), int64(rf)
		return li % ri, nil
	}
	if resultIsFloat {
		return result, nil
	}
	return int64(result), nil
}

func evalIn(left, right interface{}) (interface{}, error) {
	list, ok := right.([]interface{})
	if !ok {
		return nil, semanticErr("IN requires a list on the right-hand side")
	}
	for _, item := range list {
		if valuesEqual(left, item) {
			return true, nil
		}
	}
	return false, nil
}

func stringify(v interface{}) string {
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
		return "?"
	}
}
