package evaluator

import (
	"strconv"

	"github.com/sambeau/thyme/pkg/thyme/ast"
)

func (st *state) eval(node ast.Expression, idx int) (Object, error) {
	switch node := node.(type) {
	case *ast.IntegerLiteral:
		return &Integer{Value: node.Value}, nil

	case *ast.StringLiteral:
		return &String{Value: node.Value}, nil

	case *ast.BooleanLiteral:
		return nativeBoolToBoolean(node.Value), nil

	case *ast.Variable:
		if val, ok := st.scope.Get(idx, node.Name); ok {
			return val, nil
		}
		return nil, st.newError("NOTFOUND-0001", node, idx, map[string]any{"Name": node.Name})

	case *ast.This:
		return st.scope.This(idx), nil

	case *ast.Global:
		if file := st.scope.File(idx); file != "" {
			st.rec.RecordEdge(file, GlobalNode)
		}
		if st.engine.Global == nil {
			return NULL, nil
		}
		return st.engine.Global, nil

	case *ast.Param:
		return &Array{Elements: st.scope.Params(idx)}, nil

	case *ast.FieldAccess:
		obj, err := st.eval(node.Object, idx)
		if err != nil {
			return nil, err
		}
		val, _, err := st.field(obj, node, idx)
		return val, err

	case *ast.PrefixExpression:
		right, err := st.eval(node.Right, idx)
		if err != nil {
			return nil, err
		}
		return st.evalPrefix(node, right, idx)

	case *ast.InfixExpression:
		return st.evalInfix(node, idx)
	}
	return nil, st.newError("SYNTAX-0002", node, idx, map[string]any{"Got": node.String()})
}

// resolve evaluates node like eval, except that a field chain must exist all
// the way down: a missing key or index is a not-found error instead of null.
func (st *state) resolve(node ast.Expression, idx int) (Object, error) {
	fa, ok := node.(*ast.FieldAccess)
	if !ok {
		return st.eval(node, idx)
	}
	obj, err := st.resolve(fa.Object, idx)
	if err != nil {
		return nil, err
	}
	val, found, err := st.field(obj, fa, idx)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, st.newError("NOTFOUND-0002", fa, idx, map[string]any{"What": "`" + fa.String() + "`"})
	}
	return val, nil
}

// field reads fa from obj. Missing keys, out-of-range indexes and fields of
// null all yield null with found=false.
func (st *state) field(obj Object, fa *ast.FieldAccess, idx int) (Object, bool, error) {
	switch o := obj.(type) {
	case *Map:
		val, ok := o.Pairs[fa.Field]
		if !ok {
			return NULL, false, nil
		}
		return val, true, nil
	case *Array:
		if !fa.IsIndex {
			break
		}
		if fa.Index < 0 || fa.Index >= len(o.Elements) {
			return NULL, false, nil
		}
		return o.Elements[fa.Index], true, nil
	case *Null:
		return NULL, false, nil
	}
	return nil, false, st.newError("TYPE-0007", fa, idx, map[string]any{
		"Field": fa.Field,
		"Got":   typeName(obj),
	})
}

func (st *state) evalPrefix(node *ast.PrefixExpression, right Object, idx int) (Object, error) {
	switch node.Operator {
	case "!":
		return nativeBoolToBoolean(!isTruthy(right)), nil
	case "-", "+":
		i, ok := right.(*Integer)
		if !ok {
			return nil, st.newError("TYPE-0003", node, idx, map[string]any{
				"Operator": node.Operator,
				"Got":      typeName(right),
			})
		}
		if node.Operator == "-" {
			return &Integer{Value: -i.Value}, nil
		}
		return i, nil
	}
	return nil, st.newError("TYPE-0003", node, idx, map[string]any{
		"Operator": node.Operator,
		"Got":      typeName(right),
	})
}

func (st *state) evalInfix(node *ast.InfixExpression, idx int) (Object, error) {
	left, err := st.eval(node.Left, idx)
	if err != nil {
		return nil, err
	}

	// && and || only evaluate the right side when it decides the result
	switch node.Operator {
	case "&&":
		if !isTruthy(left) {
			return FALSE, nil
		}
		return st.evalTruth(node.Right, idx)
	case "||":
		if isTruthy(left) {
			return TRUE, nil
		}
		return st.evalTruth(node.Right, idx)
	}

	right, err := st.eval(node.Right, idx)
	if err != nil {
		return nil, err
	}

	switch node.Operator {
	case "==":
		return nativeBoolToBoolean(objectsEqual(left, right)), nil
	case "!=":
		return nativeBoolToBoolean(!objectsEqual(left, right)), nil
	case "<", "<=", ">", ">=":
		return st.evalComparison(node, left, right, idx)
	case "+":
		if _, ok := left.(*String); ok {
			return st.concat(node, left, right, idx)
		}
		if _, ok := right.(*String); ok {
			return st.concat(node, left, right, idx)
		}
	}
	return st.evalArithmetic(node, left, right, idx)
}

func (st *state) evalTruth(node ast.Expression, idx int) (Object, error) {
	val, err := st.eval(node, idx)
	if err != nil {
		return nil, err
	}
	return nativeBoolToBoolean(isTruthy(val)), nil
}

func (st *state) operatorError(node *ast.InfixExpression, left, right Object, idx int) error {
	return st.newError("TYPE-0002", node, idx, map[string]any{
		"Operator": node.Operator,
		"Left":     typeName(left),
		"Right":    typeName(right),
	})
}

func (st *state) evalComparison(node *ast.InfixExpression, left, right Object, idx int) (Object, error) {
	var cmp int
	switch l := left.(type) {
	case *Integer:
		r, ok := right.(*Integer)
		if !ok {
			return nil, st.operatorError(node, left, right, idx)
		}
		switch {
		case l.Value < r.Value:
			cmp = -1
		case l.Value > r.Value:
			cmp = 1
		}
	case *String:
		r, ok := right.(*String)
		if !ok {
			return nil, st.operatorError(node, left, right, idx)
		}
		switch {
		case l.Value < r.Value:
			cmp = -1
		case l.Value > r.Value:
			cmp = 1
		}
	default:
		return nil, st.operatorError(node, left, right, idx)
	}

	switch node.Operator {
	case "<":
		return nativeBoolToBoolean(cmp < 0), nil
	case "<=":
		return nativeBoolToBoolean(cmp <= 0), nil
	case ">":
		return nativeBoolToBoolean(cmp > 0), nil
	default:
		return nativeBoolToBoolean(cmp >= 0), nil
	}
}

// concat joins two scalars as text when either side of + is a string.
func (st *state) concat(node *ast.InfixExpression, left, right Object, idx int) (Object, error) {
	l, ok, err := st.text(left)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, st.operatorError(node, left, right, idx)
	}
	r, ok, err := st.text(right)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, st.operatorError(node, left, right, idx)
	}
	return &String{Value: l + r}, nil
}

func (st *state) evalArithmetic(node *ast.InfixExpression, left, right Object, idx int) (Object, error) {
	l, lok := left.(*Integer)
	r, rok := right.(*Integer)
	if !lok || !rok {
		return nil, st.operatorError(node, left, right, idx)
	}

	switch node.Operator {
	case "+":
		return &Integer{Value: l.Value + r.Value}, nil
	case "-":
		return &Integer{Value: l.Value - r.Value}, nil
	case "*":
		return &Integer{Value: l.Value * r.Value}, nil
	case "/", "%":
		if r.Value == 0 {
			return nil, st.newError("TYPE-0005", node, idx, nil)
		}
		if node.Operator == "/" {
			return &Integer{Value: l.Value / r.Value}, nil
		}
		return &Integer{Value: l.Value % r.Value}, nil
	}
	return nil, st.operatorError(node, left, right, idx)
}

// Text returns the substituted form of a scalar value: strings as-is, integers
// in decimal, booleans as true or false. ok is false for other values.
func Text(val Object) (text string, ok bool) {
	switch v := val.(type) {
	case *String:
		return v.Value, true
	case *Integer:
		return strconv.FormatInt(v.Value, 10), true
	case *Boolean:
		return strconv.FormatBool(v.Value), true
	}
	return "", false
}
