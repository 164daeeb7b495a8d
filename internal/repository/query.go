package repository

import (
	"fmt"
	"strings"
)

// selectQuery assembles a parameterised SELECT from equality, set membership
// and ordering clauses. Column names are never taken from user input; callers
// map request fields onto a fixed whitelist first.
type selectQuery struct {
	base    string
	clauses []string
	args    []any
	order   []string
	limit   int
	offset  int
}

func selectFrom(base string) *selectQuery {
	return &selectQuery{base: base}
}

func (q *selectQuery) placeholder(value any) string {
	q.args = append(q.args, value)
	return fmt.Sprintf("$%d", len(q.args))
}

// Eq adds column = value.
func (q *selectQuery) Eq(column string, value any) *selectQuery {
	q.clauses = append(q.clauses, fmt.Sprintf("%s=%s", column, q.placeholder(value)))
	return q
}

// In adds column IN (values...). An empty set matches nothing.
func (q *selectQuery) In(column string, values ...any) *selectQuery {
	if len(values) == 0 {
		q.clauses = append(q.clauses, "FALSE")
		return q
	}
	placeholders := make([]string, len(values))
	for i, v := range values {
		placeholders[i] = q.placeholder(v)
	}
	q.clauses = append(q.clauses, fmt.Sprintf("%s IN (%s)", column, strings.Join(placeholders, ",")))
	return q
}

// Overlaps adds column && values for text[] columns: at least one element in common.
func (q *selectQuery) Overlaps(column string, values []string) *selectQuery {
	q.clauses = append(q.clauses, fmt.Sprintf("%s && %s::text[]", column, q.placeholder(values)))
	return q
}

// Cmp adds column <op> value for range predicates.
func (q *selectQuery) Cmp(column, op string, value any) *selectQuery {
	q.clauses = append(q.clauses, fmt.Sprintf("%s %s %s", column, op, q.placeholder(value)))
	return q
}

// OrderBy appends an ordering term.
func (q *selectQuery) OrderBy(column string, desc bool) *selectQuery {
	if desc {
		column += " DESC"
	} else {
		column += " ASC"
	}
	q.order = append(q.order, column)
	return q
}

// Page sets LIMIT/OFFSET. A non-positive limit omits both.
func (q *selectQuery) Page(limit, offset int) *selectQuery {
	q.limit = limit
	q.offset = max(offset, 0)
	return q
}

// SQL renders the statement and its arguments.
func (q *selectQuery) SQL() (string, []any) {
	var b strings.Builder
	b.WriteString(q.base)
	if len(q.clauses) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(q.clauses, " AND "))
	}
	if len(q.order) > 0 {
		b.WriteString(" ORDER BY ")
		b.WriteString(strings.Join(q.order, ", "))
	}
	if q.limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d OFFSET %d", q.limit, q.offset)
	}
	return b.String(), q.args
}

func toAny[T any](values []T) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
