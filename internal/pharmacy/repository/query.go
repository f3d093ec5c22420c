package repository

import (
	"fmt"
	"math"
	"strings"
)

// assignments collects "col = $n" pairs for partial updates
type assignments struct {
	sets    []string
	args    []interface{}
	untimed bool
}

func (a *assignments) add(column string, value interface{}) {
	a.args = append(a.args, value)
	a.sets = append(a.sets, fmt.Sprintf("%s = $%d", column, len(a.args)))
}

func (a *assignments) empty() bool {
	return len(a.sets) == 0
}

// update appends the key condition and returns the finished statement
func (a *assignments) update(table, keyColumn string, key interface{}) (string, []interface{}) {
	args := append(a.args, key)
	sets := a.sets
	if !a.untimed {
		sets = append(sets, "updated_at = NOW()")
	}
	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s = $%d",
		table, strings.Join(sets, ", "), keyColumn, len(args))
	return query, args
}

// conditions accumulates WHERE clauses with positional arguments
type conditions struct {
	clauses []string
	args    []interface{}
}

func (c *conditions) add(clause string, value interface{}) {
	c.args = append(c.args, value)
	c.clauses = append(c.clauses, fmt.Sprintf(clause, len(c.args)))
}

// arg binds a value that is referenced outside the WHERE clause
func (c *conditions) arg(value interface{}) string {
	c.args = append(c.args, value)
	return fmt.Sprintf("$%d", len(c.args))
}

func (c *conditions) raw(clause string) {
	c.clauses = append(c.clauses, clause)
}

func (c *conditions) sql() string {
	if len(c.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(c.clauses, " AND ")
}

// paginate returns the LIMIT/OFFSET suffix and the full argument list
func (c *conditions) paginate(limit, off int) (string, []interface{}) {
	args := append(append([]interface{}{}, c.args...), limit, off)
	return fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args)), args
}

func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}

// maxOffset caps OFFSET; pages beyond it read as empty
const maxOffset = math.MaxInt32

func offset(page, limit int) int {
	if page < 1 || limit < 1 {
		return 0
	}
	if page-1 > maxOffset/limit {
		return maxOffset
	}
	return (page - 1) * limit
}
