package topicindex

import (
	"encoding/binary"
	"math"
	"strconv"
	"time"

	"github.com/SimondaVinciii/capbot-agent/internal/domain/filter"
	"github.com/SimondaVinciii/capbot-agent/internal/domain/verdict"
)

const (
	fieldVector    = "__vector"
	fieldContent   = "__content"
	fieldTitle     = "title"
	fieldCreatedAt = "created_at"
)

var returnFields = []string{
	fieldContent,
	fieldTitle,
	filter.KeySemesterID,
	filter.KeyCategoryID,
	filter.KeySupervisorID,
	fieldCreatedAt,
}

// buildFields flattens an entry for HSET. Every metadata field is always
// written because HSET merges into an existing hash: a zero id becomes an
// empty tag, which no scoped query matches, and a zero created_at becomes 0.
func buildFields(e Entry) map[string]string {
	m := map[string]string{
		fieldVector:            vectorToBytes(e.Vector),
		fieldContent:           e.Text,
		fieldTitle:             e.Metadata.Title,
		fieldCreatedAt:         "0",
		filter.KeySemesterID:   tagID(e.Metadata.SemesterID),
		filter.KeyCategoryID:   tagID(e.Metadata.CategoryID),
		filter.KeySupervisorID: tagID(e.Metadata.SupervisorID),
	}
	if !e.Metadata.CreatedAt.IsZero() {
		m[fieldCreatedAt] = strconv.FormatInt(e.Metadata.CreatedAt.Unix(), 10)
	}
	return m
}

func tagID(id int) string {
	if id == 0 {
		return ""
	}
	return strconv.Itoa(id)
}

func parseMetadata(m map[string]string) verdict.Metadata {
	md := verdict.Metadata{
		Title:        m[fieldTitle],
		SemesterID:   atoi(m[filter.KeySemesterID]),
		CategoryID:   atoi(m[filter.KeyCategoryID]),
		SupervisorID: atoi(m[filter.KeySupervisorID]),
	}
	if ts, err := strconv.ParseInt(m[fieldCreatedAt], 10, 64); err == nil && ts > 0 {
		md.CreatedAt = time.Unix(ts, 0).UTC()
	}
	return md
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

// vectorToBytes encodes a vector as little-endian FLOAT32.
func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
