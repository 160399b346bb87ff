package proposal

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/SimondaVinciii/capbot-agent/internal/domain/topic"
)

const defaultMaxStudents = 1

// Accepted schema keys. Anything else in the generator output is dropped.
const (
	keyTitle          = "title"
	keyLocalizedTitle = "localized_title"
	keyDescription    = "description"
	keyObjectives     = "objectives"
	keyProblem        = "problem"
	keyContext        = "context"
	keyContent        = "content"
	keySupervisorID   = "supervisor_id"
	keySemesterID     = "semester_id"
	keyCategoryID     = "category_id"
	keyMaxStudents    = "max_students"
	keyModifications  = "modifications_made"
	keyRationale      = "rationale"
)

var acceptedKeys = map[string]struct{}{
	keyTitle: {}, keyLocalizedTitle: {}, keyDescription: {}, keyObjectives: {},
	keyProblem: {}, keyContext: {}, keyContent: {}, keySupervisorID: {},
	keySemesterID: {}, keyCategoryID: {}, keyMaxStudents: {},
	keyModifications: {}, keyRationale: {},
}

func fromFields(raw map[string]any, original topic.Content) (Proposal, error) {
	fields := make(map[string]any, len(raw))
	for k, v := range raw {
		k = strings.ToLower(strings.TrimSpace(k))
		if _, ok := acceptedKeys[k]; ok {
			fields[k] = v
		}
	}
	if len(fields) == 0 {
		return Proposal{}, ErrUnrecoverable
	}

	c := topic.Content{
		Title:          text(fields[keyTitle], original.Title),
		LocalizedTitle: text(fields[keyLocalizedTitle], original.LocalizedTitle),
		Problem:        text(fields[keyProblem], original.Problem),
		Context:        text(fields[keyContext], original.Context),
		Body:           text(fields[keyContent], original.Body),
		Description:    text(fields[keyDescription], original.Description),
		Objectives:     text(fields[keyObjectives], original.Objectives),
		SupervisorID:   integer(fields[keySupervisorID], original.SupervisorID, 0),
		SemesterID:     integer(fields[keySemesterID], original.SemesterID, 0),
		CategoryID:     integer(fields[keyCategoryID], original.CategoryID, 0),
		MaxStudents:    integer(fields[keyMaxStudents], original.MaxStudents, defaultMaxStudents),
	}
	if c.MaxStudents < 0 {
		c.MaxStudents = defaultMaxStudents
	}

	mods := stringList(fields[keyModifications])
	if len(mods) == 0 {
		mods = []string{DefaultModification}
	}
	rationale := text(fields[keyRationale], "")
	if rationale == "" {
		rationale = DefaultRationale
	}

	return Proposal{Content: c, ModificationsMade: mods, Rationale: rationale}, nil
}

func text(v any, fallback string) string {
	s, ok := v.(string)
	if !ok {
		return fallback
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return fallback
	}
	return s
}

// integer coerces numbers, numeric strings and floats. On failure the
// original value is used when set, otherwise def.
func integer(v any, original, def int) int {
	if n, ok := toInt(v); ok {
		return n
	}
	if original != 0 {
		return original
	}
	return def
}

func toInt(v any) (int, bool) {
	switch x := v.(type) {
	case float64:
		return floatToInt(x)
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return int(n), true
		}
		f, err := x.Float64()
		if err != nil {
			return 0, false
		}
		return floatToInt(f)
	case string:
		s := strings.TrimSpace(x)
		if n, err := strconv.Atoi(s); err == nil {
			return n, true
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return floatToInt(f)
	}
	return 0, false
}

func floatToInt(f float64) (int, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}

func stringList(v any) []string {
	var items []any
	switch x := v.(type) {
	case []any:
		items = x
	case string:
		items = []any{x}
	default:
		return nil
	}

	out := make([]string, 0, len(items))
	for _, it := range items {
		s, ok := it.(string)
		if !ok {
			continue
		}
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
