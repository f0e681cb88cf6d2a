package repository

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sagarr-tbd/truevalue-crm-sub000/internal/domain"
	"gorm.io/gorm"
)

// FieldKind drives how filter values are coerced and compared
type FieldKind int

const (
	KindText FieldKind = iota
	KindNumber
	KindDate
	KindUUID
	KindEnum
)

// FilterField describes one whitelisted filterable field. Compound
// fields (e.g. a person's name) match any of their columns.
type FilterField struct {
	Column  string
	Columns []string // compound; overrides Column when set
	Kind    FieldKind
}

func (f FilterField) columns() []string {
	if len(f.Columns) > 0 {
		return f.Columns
	}
	return []string{f.Column}
}

type compiledCond struct {
	expr string
	args []interface{}
}

// ApplyFilters compiles an advanced filter onto a query. Positive
// conditions are combined with the requested logic; negative operators
// (notEquals, notContains, notIn) are applied afterwards as exclusion
// steps so they hold regardless of OR-logic. Clauses naming unknown
// fields or malformed values are dropped, never errored.
func ApplyFilters(query *gorm.DB, clauses []domain.FilterClause, logic domain.FilterLogic, fields map[string]FilterField) *gorm.DB {
	var positives []compiledCond
	var negatives []compiledCond

	for _, clause := range clauses {
		field, ok := fields[clause.Field]
		if !ok || !clause.Operator.IsValid() {
			continue
		}
		cond, ok := compileClause(field, clause)
		if !ok {
			continue
		}
		if clause.Operator.IsNegative() {
			negatives = append(negatives, cond)
		} else {
			positives = append(positives, cond)
		}
	}

	if len(positives) > 0 {
		joiner := " AND "
		if logic == domain.FilterLogicOr {
			joiner = " OR "
		}
		exprs := make([]string, len(positives))
		var args []interface{}
		for i, c := range positives {
			exprs[i] = c.expr
			args = append(args, c.args...)
		}
		query = query.Where("("+strings.Join(exprs, joiner)+")", args...)
	}

	for _, c := range negatives {
		query = query.Where("NOT ("+c.expr+")", c.args...)
	}

	return query
}

// compileClause builds the positive form of a single condition; the
// caller negates it for exclusion operators.
func compileClause(field FilterField, clause domain.FilterClause) (compiledCond, bool) {
	cols := field.columns()

	switch clause.Operator {
	case domain.OpIsEmpty:
		return orOverColumns(cols, func(col string) (string, []interface{}) {
			return fmt.Sprintf("(%s IS NULL OR %s = '')", col, col), nil
		}), true
	case domain.OpIsNotEmpty:
		return orOverColumns(cols, func(col string) (string, []interface{}) {
			return fmt.Sprintf("(%s IS NOT NULL AND %s <> '')", col, col), nil
		}), true

	case domain.OpEquals, domain.OpNotEquals:
		value, ok := coerceValue(field.Kind, clause.Value)
		if !ok {
			return compiledCond{}, false
		}
		return orOverColumns(cols, func(col string) (string, []interface{}) {
			return col + " = ?", []interface{}{value}
		}), true

	case domain.OpContains, domain.OpNotContains:
		s, ok := stringValue(clause.Value)
		if !ok {
			return compiledCond{}, false
		}
		pattern := "%" + strings.ToLower(s) + "%"
		return orOverColumns(cols, func(col string) (string, []interface{}) {
			return "LOWER(" + col + ") LIKE ?", []interface{}{pattern}
		}), true

	case domain.OpStartsWith:
		s, ok := stringValue(clause.Value)
		if !ok {
			return compiledCond{}, false
		}
		pattern := strings.ToLower(s) + "%"
		return orOverColumns(cols, func(col string) (string, []interface{}) {
			return "LOWER(" + col + ") LIKE ?", []interface{}{pattern}
		}), true

	case domain.OpEndsWith:
		s, ok := stringValue(clause.Value)
		if !ok {
			return compiledCond{}, false
		}
		pattern := "%" + strings.ToLower(s)
		return orOverColumns(cols, func(col string) (string, []interface{}) {
			return "LOWER(" + col + ") LIKE ?", []interface{}{pattern}
		}), true

	case domain.OpGt, domain.OpLt, domain.OpGte, domain.OpLte:
		value, ok := coerceValue(field.Kind, clause.Value)
		if !ok {
			return compiledCond{}, false
		}
		op := map[domain.FilterOperator]string{
			domain.OpGt: ">", domain.OpLt: "<", domain.OpGte: ">=", domain.OpLte: "<=",
		}[clause.Operator]
		return orOverColumns(cols, func(col string) (string, []interface{}) {
			return col + " " + op + " ?", []interface{}{value}
		}), true

	case domain.OpIn, domain.OpNotIn:
		values, ok := coerceList(field.Kind, clause.Value)
		if !ok {
			return compiledCond{}, false
		}
		return orOverColumns(cols, func(col string) (string, []interface{}) {
			return col + " IN ?", []interface{}{values}
		}), true
	}

	return compiledCond{}, false
}

func orOverColumns(cols []string, build func(col string) (string, []interface{})) compiledCond {
	if len(cols) == 1 {
		expr, args := build(cols[0])
		return compiledCond{expr: expr, args: args}
	}
	exprs := make([]string, len(cols))
	var args []interface{}
	for i, col := range cols {
		expr, colArgs := build(col)
		exprs[i] = expr
		args = append(args, colArgs...)
	}
	return compiledCond{expr: "(" + strings.Join(exprs, " OR ") + ")", args: args}
}

func stringValue(v interface{}) (string, bool) {
	s, ok := v.(string)
	return s, ok && s != ""
}

// coerceValue validates a scalar against the field kind. UUID fields
// reject anything that does not parse, which also keeps malformed
// input out of the SQL layer.
func coerceValue(kind FieldKind, v interface{}) (interface{}, bool) {
	switch kind {
	case KindUUID:
		s, ok := v.(string)
		if !ok {
			return nil, false
		}
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, false
		}
		return id, true
	case KindNumber:
		switch n := v.(type) {
		case float64:
			return n, true
		case int:
			return n, true
		case int64:
			return n, true
		}
		return nil, false
	default:
		if v == nil {
			return nil, false
		}
		return v, true
	}
}

func coerceList(kind FieldKind, v interface{}) ([]interface{}, bool) {
	raw, ok := v.([]interface{})
	if !ok || len(raw) == 0 {
		return nil, false
	}
	out := make([]interface{}, 0, len(raw))
	for _, item := range raw {
		value, ok := coerceValue(kind, item)
		if !ok {
			return nil, false
		}
		out = append(out, value)
	}
	return out, true
}
