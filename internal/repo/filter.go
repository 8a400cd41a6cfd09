package repo

import (
	"fmt"
	"strings"

	"go.einride.tech/aip/filtering"
	expr "google.golang.org/genproto/googleapis/api/expr/v1alpha1"
)

// TaskDeclarations returns the identifiers a task filter may reference.
func TaskDeclarations() (*filtering.Declarations, error) {
	return filtering.NewDeclarations(
		filtering.DeclareStandardFunctions(),
		filtering.DeclareIdent("status", filtering.TypeString),
		filtering.DeclareIdent("priority", filtering.TypeString),
		filtering.DeclareIdent("owner_id", filtering.TypeInt),
		filtering.DeclareIdent("stage_id", filtering.TypeInt),
		filtering.DeclareIdent("project_id", filtering.TypeInt),
		filtering.DeclareIdent("due_date", filtering.TypeString),
	)
}

// SQLCondition is a WHERE fragment with positional parameters.
type SQLCondition struct {
	Clause string
	Params []any
}

// Empty reports whether the condition adds nothing to a query.
func (c SQLCondition) Empty() bool {
	return strings.TrimSpace(c.Clause) == ""
}

var taskFieldColumns = map[string]string{
	"status":     "status",
	"priority":   "priority",
	"owner_id":   "owner_id",
	"stage_id":   "stage_id",
	"project_id": "project_id",
	"due_date":   "due_date",
}

// ParseTaskFilter translates an AIP-160 filter into a SQL condition.
// An empty filter yields an empty condition.
func ParseTaskFilter(filter string) (SQLCondition, error) {
	if strings.TrimSpace(filter) == "" {
		return SQLCondition{}, nil
	}
	decls, err := TaskDeclarations()
	if err != nil {
		return SQLCondition{}, fmt.Errorf("create declarations: %w", err)
	}
	parsed, err := filtering.ParseFilterString(filter, decls)
	if err != nil {
		return SQLCondition{}, fmt.Errorf("parse filter: %w", err)
	}
	return translateExpr(parsed.CheckedExpr.Expr)
}

func translateExpr(e *expr.Expr) (SQLCondition, error) {
	if e == nil {
		return SQLCondition{}, nil
	}
	call, ok := e.ExprKind.(*expr.Expr_CallExpr)
	if !ok {
		return SQLCondition{}, fmt.Errorf("unsupported expression type: %T", e.ExprKind)
	}
	switch fn := call.CallExpr.Function; fn {
	case "_&&_", "AND":
		return joinBoth(call.CallExpr.Args, "AND")
	case "_||_", "OR":
		return joinBoth(call.CallExpr.Args, "OR")
	case "NOT", "!_":
		if len(call.CallExpr.Args) != 1 {
			return SQLCondition{}, fmt.Errorf("NOT requires 1 argument")
		}
		inner, err := translateExpr(call.CallExpr.Args[0])
		if err != nil {
			return SQLCondition{}, err
		}
		return SQLCondition{Clause: "NOT (" + inner.Clause + ")", Params: inner.Params}, nil
	case "_==_", "=":
		return comparison(call.CallExpr.Args, "=")
	case "_!=_", "!=":
		return comparison(call.CallExpr.Args, "!=")
	case "_<_", "<":
		return comparison(call.CallExpr.Args, "<")
	case "_<=_", "<=":
		return comparison(call.CallExpr.Args, "<=")
	case "_>_", ">":
		return comparison(call.CallExpr.Args, ">")
	case "_>=_", ">=":
		return comparison(call.CallExpr.Args, ">=")
	default:
		return SQLCondition{}, fmt.Errorf("unsupported function: %s", fn)
	}
}

func joinBoth(args []*expr.Expr, op string) (SQLCondition, error) {
	if len(args) != 2 {
		return SQLCondition{}, fmt.Errorf("%s requires 2 arguments", op)
	}
	left, err := translateExpr(args[0])
	if err != nil {
		return SQLCondition{}, err
	}
	right, err := translateExpr(args[1])
	if err != nil {
		return SQLCondition{}, err
	}
	return SQLCondition{
		Clause: fmt.Sprintf("(%s %s %s)", left.Clause, op, right.Clause),
		Params: append(left.Params, right.Params...),
	}, nil
}

func comparison(args []*expr.Expr, op string) (SQLCondition, error) {
	if len(args) != 2 {
		return SQLCondition{}, fmt.Errorf("comparison requires 2 arguments")
	}
	ident, ok := args[0].GetExprKind().(*expr.Expr_IdentExpr)
	if !ok {
		return SQLCondition{}, fmt.Errorf("expected identifier, got %T", args[0].GetExprKind())
	}
	column, ok := taskFieldColumns[ident.IdentExpr.Name]
	if !ok {
		return SQLCondition{}, fmt.Errorf("unknown field: %s", ident.IdentExpr.Name)
	}
	value, err := constValue(args[1])
	if err != nil {
		return SQLCondition{}, err
	}
	return SQLCondition{Clause: fmt.Sprintf("%s %s ?", column, op), Params: []any{value}}, nil
}

func constValue(e *expr.Expr) (any, error) {
	c, ok := e.GetExprKind().(*expr.Expr_ConstExpr)
	if !ok {
		return nil, fmt.Errorf("expected constant, got %T", e.GetExprKind())
	}
	switch v := c.ConstExpr.ConstantKind.(type) {
	case *expr.Constant_StringValue:
		return v.StringValue, nil
	case *expr.Constant_Int64Value:
		return v.Int64Value, nil
	case *expr.Constant_Uint64Value:
		return int64(v.Uint64Value), nil
	case *expr.Constant_BoolValue:
		return v.BoolValue, nil
	default:
		return nil, fmt.Errorf("unsupported constant type: %T", v)
	}
}
