package filter

import (
	"strings"
	"testing"
)

func TestNewMatch(t *testing.T) {
	c, err := NewMatch(KeySemesterID, "3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Key() != KeySemesterID || c.Match() != "3" {
		t.Errorf("got %s=%s", c.Key(), c.Match())
	}

	if _, err := NewMatch("", "3"); err == nil {
		t.Error("expected error for empty key")
	}
	_, err = NewMatch(KeySemesterID, "")
	if err == nil || !strings.Contains(err.Error(), "semester_id") {
		t.Errorf("expected error naming the key, got %v", err)
	}
}

func TestNewExpression_TooManyConditions(t *testing.T) {
	conds := make([]Condition, MaxConditionsPerGroup+1)
	if _, err := NewExpression(conds, nil, nil); err == nil {
		t.Error("expected error for too many must conditions")
	}
	if _, err := NewExpression(nil, conds, nil); err == nil {
		t.Error("expected error for too many should conditions")
	}
	if _, err := NewExpression(nil, nil, conds); err == nil {
		t.Error("expected error for too many must_not conditions")
	}
	if _, err := NewExpression(conds[:MaxConditionsPerGroup], nil, nil); err != nil {
		t.Errorf("max conditions should be allowed: %v", err)
	}
}

func TestAnyOf(t *testing.T) {
	e, err := AnyOf(KeySemesterID, []int{3, 4, 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(e.Should()) != 2 || len(e.Must()) != 0 || len(e.MustNot()) != 0 {
		t.Fatalf("expected two deduplicated should conditions, got %+v", e)
	}
	if e.Should()[0].Match() != "3" || e.Should()[1].Match() != "4" {
		t.Errorf("unexpected order: %+v", e.Should())
	}

	empty, err := AnyOf(KeySemesterID, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !empty.IsEmpty() {
		t.Error("no ids must produce an empty expression")
	}
}
