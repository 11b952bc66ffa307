package core

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"
)

var (
	ErrNoDocument        = errors.New("document not found")
	ErrDuplicateDocument = errors.New("document already exists")
)

type (
	// Filter matches documents whose top-level fields equal the given values.
	// A []string value matches documents whose field equals any of its elements.
	Filter map[string]interface{}

	WriteOpKind int

	// WriteOp is a single write applied by DocStore.WriteBatch.
	WriteOp struct {
		Kind       WriteOpKind
		Collection string
		ID         string
		Doc        interface{}            // OpInsert, OpReplace
		Fields     map[string]interface{} // OpUpdate
	}

	// DocStore is a document database: named collections of JSON-like documents keyed by id.
	// `out` arguments follow the encoding/json convention: a pointer to a struct for Get,
	// a pointer to a slice for Find.
	DocStore interface {
		Insert(ctx context.Context, coll, id string, doc interface{}) error
		Get(ctx context.Context, coll, id string, out interface{}) error
		Find(ctx context.Context, coll string, filter Filter, out interface{}) error
		Count(ctx context.Context, coll string, filter Filter) (int64, error)
		Replace(ctx context.Context, coll, id string, doc interface{}) error
		Update(ctx context.Context, coll, id string, fields map[string]interface{}) error
		Delete(ctx context.Context, coll string, ids ...string) (int64, error)
		// WriteBatch applies ops in order using the backend's native batch primitive.
		WriteBatch(ctx context.Context, ops []WriteOp) error
		Ping(ctx context.Context) error
		Close(ctx context.Context) error
	}

	// Cache is a byte cache with prefix invalidation.
	Cache interface {
		Get(ctx context.Context, key string) ([]byte, bool, error)
		Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
		DeletePrefix(ctx context.Context, prefix string) error
	}
)

const (
	OpInsert WriteOpKind = iota + 1
	OpReplace
	OpUpdate
	OpDelete
)

func (k WriteOpKind) String() string {
	switch k {
	case OpInsert:
		return "insert"
	case OpReplace:
		return "replace"
	case OpUpdate:
		return "update"
	case OpDelete:
		return "delete"
	}
	return "unknown"
}

// Collections touched by ops, deduplicated, in order of first appearance.
func Collections(ops []WriteOp) []string {
	seen := make(map[string]bool, len(ops))
	colls := make([]string, 0, 4)
	for _, op := range ops {
		if !seen[op.Collection] {
			seen[op.Collection] = true
			colls = append(colls, op.Collection)
		}
	}
	return colls
}

// ChunkOps splits ops into batches of at most size ops.
func ChunkOps(ops []WriteOp, size int) [][]WriteOp {
	if size <= 0 || len(ops) <= size {
		if len(ops) == 0 {
			return nil
		}
		return [][]WriteOp{ops}
	}
	chunks := make([][]WriteOp, 0, len(ops)/size+1)
	for start := 0; start < len(ops); start += size {
		end := start + size
		if end > len(ops) {
			end = len(ops)
		}
		chunks = append(chunks, ops[start:end])
	}
	return chunks
}

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

// ParseOrdering parses `field,-field` into orderings; a leading "-" sorts descending.
func ParseOrdering(val string) []DBOrdering {
	var orderings []DBOrdering
	for _, field := range strings.Split(val, ",") {
		field = strings.TrimSpace(field)
		if field == "" || field == "-" {
			continue
		}
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		orderings = append(orderings, DBOrdering{Field: field, Ascending: !descending})
	}
	return orderings
}

// Comparators compare the elements at i and j of a slice on one field: <0, 0, >0.
type Comparators map[string]func(i, j int) int

// SortByOrdering stable-sorts slice following orderings. Unknown fields are ignored.
func SortByOrdering(slice interface{}, orderings []DBOrdering, cmps Comparators) {
	if len(orderings) == 0 {
		return
	}
	sort.SliceStable(slice, func(i, j int) bool {
		for _, ord := range orderings {
			cmp, ok := cmps[ord.Field]
			if !ok {
				continue
			}
			if c := cmp(i, j); c != 0 {
				if ord.Ascending {
					return c < 0
				}
				return c > 0
			}
		}
		return false
	})
}

func CompareStrings(a, b string) int {
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}

func CompareTimes(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	}
	return 0
}

func CompareFloats(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func CompareBools(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	}
	return 1
}
