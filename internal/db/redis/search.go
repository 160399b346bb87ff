package redis

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/redis/rueidis"

	"github.com/SimondaVinciii/capbot-agent/internal/db"
	"github.com/SimondaVinciii/capbot-agent/internal/domain/filter"
)

const (
	defaultVectorField = "__vector"
	scoreField         = "__vector_score"
)

// SearchKNN runs a KNN query. Cosine distance is converted to a similarity
// clamped to [0, 1].
func (s *Store) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if q.IndexName == "" {
		return nil, fmt.Errorf("index name is required")
	}
	if len(q.Vector) == 0 {
		return nil, fmt.Errorf("vector is required")
	}
	if q.K <= 0 {
		return nil, fmt.Errorf("k must be positive")
	}

	field := q.VectorField
	if field == "" {
		field = defaultVectorField
	}
	knn := fmt.Sprintf("[KNN %d @%s $BLOB]", q.K, field)

	query := "*=>" + knn
	if f := buildFilter(q.Filters); f != "" {
		query = fmt.Sprintf("(%s)=>%s", f, knn)
	}

	args := []string{q.IndexName, query}
	if len(q.ReturnFields) > 0 {
		args = append(args, "RETURN", strconv.Itoa(len(q.ReturnFields)+1))
		args = append(args, q.ReturnFields...)
		args = append(args, scoreField)
	}
	args = append(args,
		"SORTBY", scoreField,
		"LIMIT", "0", strconv.Itoa(q.K),
		"PARAMS", "2", "BLOB", vectorToBytes(q.Vector),
		"DIALECT", "2",
	)

	raw, err := s.do(ctx, s.b().Arbitrary("FT.SEARCH").Args(args...).Build()).ToArray()
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}

	res, err := parseResult(raw)
	if err != nil {
		return nil, err
	}
	for i := range res.Entries {
		e := &res.Entries[i]
		if v, ok := e.Fields[scoreField]; ok {
			if dist, err := strconv.ParseFloat(v, 64); err == nil {
				e.Score = min(1, max(0, 1-dist))
			}
			delete(e.Fields, scoreField)
		}
	}
	return res, nil
}

// SearchList returns a filtered page of entries.
func (s *Store) SearchList(ctx context.Context, q *db.ListQuery) (*db.SearchResult, error) {
	if q.IndexName == "" {
		return nil, fmt.Errorf("index name is required")
	}
	if q.Offset < 0 || q.Limit <= 0 {
		return nil, fmt.Errorf("invalid page offset=%d limit=%d", q.Offset, q.Limit)
	}

	args := []string{q.IndexName, listQuery(q.Filters)}
	if len(q.ReturnFields) > 0 {
		args = append(args, "RETURN", strconv.Itoa(len(q.ReturnFields)))
		args = append(args, q.ReturnFields...)
	}
	if q.SortBy != "" {
		args = append(args, "SORTBY", q.SortBy, "ASC")
	}
	args = append(args, "LIMIT", strconv.Itoa(q.Offset), strconv.Itoa(q.Limit), "DIALECT", "2")

	raw, err := s.do(ctx, s.b().Arbitrary("FT.SEARCH").Args(args...).Build()).ToArray()
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}
	return parseResult(raw)
}

// SearchCount returns the number of matching entries.
func (s *Store) SearchCount(ctx context.Context, q *db.ListQuery) (int, error) {
	cmd := s.b().Arbitrary("FT.SEARCH").
		Args(q.IndexName, listQuery(q.Filters), "LIMIT", "0", "0", "DIALECT", "2").
		Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return 0, &db.Error{Op: db.OpSearch, Err: err}
	}
	if len(raw) == 0 {
		return 0, nil
	}
	total, err := raw[0].AsInt64()
	if err != nil {
		return 0, fmt.Errorf("parse count: %w", err)
	}
	return int(total), nil
}

func listQuery(expr filter.Expression) string {
	if f := buildFilter(expr); f != "" {
		return f
	}
	return "*"
}

// parseResult reads [total, key1, fields1, key2, fields2, ...].
func parseResult(raw []rueidis.RedisMessage) (*db.SearchResult, error) {
	if len(raw) == 0 {
		return &db.SearchResult{}, nil
	}

	total, err := raw[0].AsInt64()
	if err != nil {
		return nil, fmt.Errorf("parse total: %w", err)
	}

	entries := make([]db.SearchEntry, 0, (len(raw)-1)/2)
	for i := 1; i+1 < len(raw); i += 2 {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}
		fields, err := raw[i+1].ToArray()
		if err != nil {
			continue
		}
		entries = append(entries, db.SearchEntry{Key: key, Fields: fieldPairs(fields)})
	}
	return &db.SearchResult{Total: int(total), Entries: entries}, nil
}

func fieldPairs(fields []rueidis.RedisMessage) map[string]string {
	m := make(map[string]string, len(fields)/2)
	for j := 0; j+1 < len(fields); j += 2 {
		name, err := fields[j].ToString()
		if err != nil {
			continue
		}
		value, err := fields[j+1].ToString()
		if err != nil {
			continue
		}
		m[name] = value
	}
	return m
}

// buildFilter renders an expression as an FT.SEARCH pre-filter. The should
// group is parenthesized only when other clauses share the intersection, so
// SearchKNN's own grouping never nests.
func buildFilter(expr filter.Expression) string {
	if expr.IsEmpty() {
		return ""
	}

	should := expr.Should()
	alone := len(expr.Must()) == 0 && len(expr.MustNot()) == 0
	parts := make([]string, 0, len(expr.Must())+len(expr.MustNot())+1)
	for _, c := range expr.Must() {
		parts = append(parts, tagClause(c))
	}
	if len(should) > 0 {
		alt := make([]string, 0, len(should))
		for _, c := range should {
			alt = append(alt, tagClause(c))
		}
		union := strings.Join(alt, " | ")
		if len(alt) > 1 && !alone {
			union = "(" + union + ")"
		}
		parts = append(parts, union)
	}
	for _, c := range expr.MustNot() {
		parts = append(parts, "-"+tagClause(c))
	}
	return strings.Join(parts, " ")
}

func tagClause(c filter.Condition) string {
	return fmt.Sprintf("@%s:{%s}", c.Key(), tagEscaper.Replace(c.Match()))
}

var tagEscaper = strings.NewReplacer(
	",", `\,`, ".", `\.`, "<", `\<`, ">", `\>`, "{", `\{`, "}", `\}`,
	`"`, `\"`, "'", `\'`, ":", `\:`, ";", `\;`, "!", `\!`, "@", `\@`,
	"#", `\#`, "$", `\$`, "%", `\%`, "^", `\^`, "&", `\&`, "*", `\*`,
	"(", `\(`, ")", `\)`, "-", `\-`, "+", `\+`, "=", `\=`, "~", `\~`,
	"|", `\|`, " ", `\ `,
)

// vectorToBytes encodes a vector as little-endian FLOAT32.
func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
