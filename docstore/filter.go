package docstore

import (
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
)

type Op int

const (
	OpEq Op = iota
	OpNotEq
	OpLessThan
	OpGreaterThan
	OpMatch
	OpIsNull
	OpNotNull
)

// Clause is one filter condition. A clause with a non-empty Or slice is an
// OR-group of its members and ignores its own Field/Op/Value.
type Clause struct {
	Field string
	Op    Op
	Value any
	Or    []Clause
}

// Filter is a conjunction of clauses.
type Filter []Clause

func Eq(field string, value any) Clause    { return Clause{Field: field, Op: OpEq, Value: value} }
func NotEq(field string, value any) Clause { return Clause{Field: field, Op: OpNotEq, Value: value} }
func LessThan(field string, value any) Clause {
	return Clause{Field: field, Op: OpLessThan, Value: value}
}
func GreaterThan(field string, value any) Clause {
	return Clause{Field: field, Op: OpGreaterThan, Value: value}
}

// Match is a wildcard string match; '*' in the pattern matches any run of
// characters.
func Match(field, pattern string) Clause { return Clause{Field: field, Op: OpMatch, Value: pattern} }
func IsNull(field string) Clause         { return Clause{Field: field, Op: OpIsNull} }
func NotNull(field string) Clause        { return Clause{Field: field, Op: OpNotNull} }
func Or(clauses ...Clause) Clause        { return Clause{Or: clauses} }

type whereBuilder struct {
	args pgx.NamedArgs
	n    int
}

func (b *whereBuilder) bind(v any) string {
	b.n++
	name := fmt.Sprintf("w%d", b.n)
	b.args[name] = v
	return "@" + name
}

func fieldExpr(field string, value any) string {
	expr := fmt.Sprintf("fields->>'%s'", field)
	switch value.(type) {
	case time.Time:
		return "(" + expr + ")::timestamptz"
	case int, int64, float64:
		return "(" + expr + ")::numeric"
	default:
		return expr
	}
}

func (b *whereBuilder) clauseSQL(c Clause) string {
	if len(c.Or) > 0 {
		parts := make([]string, 0, len(c.Or))
		for _, inner := range c.Or {
			parts = append(parts, b.clauseSQL(inner))
		}
		return "(" + strings.Join(parts, " OR ") + ")"
	}

	switch c.Op {
	case OpEq:
		return fmt.Sprintf("%s = %s", fieldExpr(c.Field, c.Value), b.bind(c.Value))
	case OpNotEq:
		return fmt.Sprintf("%s IS DISTINCT FROM %s", fieldExpr(c.Field, c.Value), b.bind(c.Value))
	case OpLessThan:
		return fmt.Sprintf("%s < %s", fieldExpr(c.Field, c.Value), b.bind(c.Value))
	case OpGreaterThan:
		return fmt.Sprintf("%s > %s", fieldExpr(c.Field, c.Value), b.bind(c.Value))
	case OpMatch:
		pattern := strings.ReplaceAll(fmt.Sprintf("%v", c.Value), "*", "%")
		return fmt.Sprintf("fields->>'%s' ILIKE %s", c.Field, b.bind(pattern))
	case OpIsNull:
		return fmt.Sprintf("(fields->>'%s') IS NULL", c.Field)
	case OpNotNull:
		return fmt.Sprintf("(fields->>'%s') IS NOT NULL", c.Field)
	default:
		return "TRUE"
	}
}

// buildWhere renders the filter as a SQL condition over the jsonb fields
// column, collecting bind parameters into named args.
func buildWhere(filter Filter, args pgx.NamedArgs) string {
	if len(filter) == 0 {
		return "TRUE"
	}

	b := &whereBuilder{args: args}
	parts := make([]string, 0, len(filter))
	for _, c := range filter {
		parts = append(parts, b.clauseSQL(c))
	}

	return strings.Join(parts, " AND ")
}
