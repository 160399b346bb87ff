// Package filter describes metadata restrictions on similarity index queries.
package filter

import (
	"fmt"
	"strconv"
)

// MaxConditionsPerGroup is the maximum number of conditions per group.
const MaxConditionsPerGroup = 32

// Indexed metadata keys that can be filtered on.
const (
	KeySemesterID   = "semester_id"
	KeyCategoryID   = "category_id"
	KeySupervisorID = "supervisor_id"
)

// Expression combines tag conditions: all of must, at least one of should,
// none of mustNot.
type Expression struct {
	must    []Condition
	should  []Condition
	mustNot []Condition
}

// NewExpression validates group sizes and creates an Expression.
func NewExpression(must, should, mustNot []Condition) (Expression, error) {
	for name, group := range map[string][]Condition{"must": must, "should": should, "must_not": mustNot} {
		if len(group) > MaxConditionsPerGroup {
			return Expression{}, fmt.Errorf("too many %s conditions (max %d)", name, MaxConditionsPerGroup)
		}
	}
	return Expression{must: must, should: should, mustNot: mustNot}, nil
}

// AnyOf matches entries whose key equals one of ids. No ids means no restriction.
func AnyOf(key string, ids []int) (Expression, error) {
	conds := make([]Condition, 0, len(ids))
	seen := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		c, err := NewMatch(key, strconv.Itoa(id))
		if err != nil {
			return Expression{}, err
		}
		conds = append(conds, c)
	}
	return NewExpression(nil, conds, nil)
}

// Must returns the must conditions.
func (e Expression) Must() []Condition { return e.must }

// Should returns the should conditions.
func (e Expression) Should() []Condition { return e.should }

// MustNot returns the must-not conditions.
func (e Expression) MustNot() []Condition { return e.mustNot }

// IsEmpty reports whether the expression has no conditions.
func (e Expression) IsEmpty() bool {
	return len(e.must) == 0 && len(e.should) == 0 && len(e.mustNot) == 0
}

// Condition is an exact tag match.
type Condition struct {
	key   string
	match string
}

// NewMatch creates an exact tag match condition.
func NewMatch(key, match string) (Condition, error) {
	if key == "" {
		return Condition{}, fmt.Errorf("filter key is required")
	}
	if match == "" {
		return Condition{}, fmt.Errorf("match value is required for key %q", key)
	}
	return Condition{key: key, match: match}, nil
}

// Key returns the field name.
func (c Condition) Key() string { return c.key }

// Match returns the exact match value.
func (c Condition) Match() string { return c.match }
