// Package docstore is the document-store abstraction every repository writes through.
// Paths are slash-separated: a collection path followed by a document id.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// Store errors. Adapters map backend failures onto these; anything unmapped is ErrUnavailable.
var (
	ErrNotFound      = errors.New("document not found")
	ErrAlreadyExists = errors.New("document already exists")
	ErrInvalidPath   = errors.New("invalid document path")
	ErrUnavailable   = errors.New("document store unavailable")
)

// Document is a stored JSON document
type Document struct {
	ID         string
	Path       string
	Data       map[string]any
	CreateTime time.Time
	UpdateTime time.Time
}

// DataTo decodes the document data into v
func (d *Document) DataTo(v any) error {
	b, err := json.Marshal(d.Data)
	if err != nil {
		return fmt.Errorf("failed to encode document %s: %w", d.Path, err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("failed to decode document %s: %w", d.Path, err)
	}
	return nil
}

// Filter is an equality condition on a top-level field
type Filter struct {
	Field string
	Value any
}

// Query selects documents of one collection
type Query struct {
	Collection string
	Filters    []Filter
	OrderBy    string
	Descending bool
	// Limit <= 0 means no limit
	Limit int
}

// Where returns a copy of q with an additional equality filter
func (q Query) Where(field string, value any) Query {
	filters := make([]Filter, 0, len(q.Filters)+1)
	filters = append(filters, q.Filters...)
	q.Filters = append(filters, Filter{Field: field, Value: value})
	return q
}

// Reader is the read side shared by Store and Tx
type Reader interface {
	Get(ctx context.Context, path string) (*Document, error)
	Query(ctx context.Context, q Query) ([]*Document, error)
}

// Writer is the write side shared by Store and Tx. data is any value that encodes to a
// JSON object.
type Writer interface {
	// Create fails with ErrAlreadyExists when the document exists
	Create(ctx context.Context, path string, data any) error
	// Set overwrites the document, or merges top-level fields into it when merge is true
	Set(ctx context.Context, path string, data any, merge bool) error
	// Delete removes the document; deleting a missing document is not an error
	Delete(ctx context.Context, path string) error
}

// Tx is a view of the store inside an atomic transaction. Reads must precede writes.
type Tx interface {
	Reader
	Writer
}

// Store is a document store
type Store interface {
	Reader
	Writer
	// RunTransaction runs fn atomically. An error returned by fn aborts the transaction and
	// is returned unchanged.
	RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	// Subscribe emits the result of q now and again after every change to q.Collection
	Subscribe(ctx context.Context, q Query) (*Subscription, error)
	Ping(ctx context.Context) error
	Close() error
}

// Snapshot is one emission of a subscription
type Snapshot struct {
	Docs   []*Document
	Err    error
	ReadAt time.Time
}

// SplitPath splits a document path into its collection path and id
func SplitPath(path string) (collection, id string, err error) {
	path = strings.Trim(path, "/")
	i := strings.LastIndex(path, "/")
	if i <= 0 || i == len(path)-1 {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	return path[:i], path[i+1:], nil
}

func validCollection(collection string) error {
	if strings.Trim(collection, "/") == "" {
		return fmt.Errorf("%w: empty collection", ErrInvalidPath)
	}
	return nil
}

// toMap encodes data as a JSON object
func toMap(data any) (map[string]any, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document data: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("document data is not an object: %w", err)
	}
	if m == nil {
		m = map[string]any{}
	}
	return m, nil
}

func mergeMaps(dst, src map[string]any) map[string]any {
	out := make(map[string]any, len(dst)+len(src))
	for k, v := range dst {
		out[k] = v
	}
	for k, v := range src {
		out[k] = v
	}
	return out
}
