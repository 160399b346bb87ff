package db

import "github.com/SimondaVinciii/capbot-agent/internal/domain/filter"

// KNNQuery is the input for vector similarity search.
type KNNQuery struct {
	IndexName    string
	VectorField  string
	Filters      filter.Expression
	Vector       []float32
	K            int
	ReturnFields []string
}

// ListQuery is the input for a paginated filter-only search.
type ListQuery struct {
	IndexName    string
	Filters      filter.Expression
	Offset       int
	Limit        int
	ReturnFields []string
	SortBy       string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single hit. Score is a similarity in [0, 1] for KNN
// queries and zero for list queries.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}
