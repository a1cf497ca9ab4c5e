package repository

import (
	"context"

	"github.com/straye-as/crm-api/internal/docstore"
)

// handle is the store or a transaction; repositories bound with WithTx run inside it
type handle interface {
	docstore.Reader
	docstore.Writer
}

func getDocument[T any](ctx context.Context, db handle, path string) (*T, error) {
	doc, err := db.Get(ctx, path)
	if err != nil {
		return nil, err
	}
	var v T
	if err := doc.DataTo(&v); err != nil {
		return nil, err
	}
	return &v, nil
}

func queryDocuments[T any](ctx context.Context, db handle, q docstore.Query) ([]T, error) {
	docs, err := db.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	return DecodeAll[T](docs)
}

// DecodeAll decodes every document into T
func DecodeAll[T any](docs []*docstore.Document) ([]T, error) {
	out := make([]T, 0, len(docs))
	for _, doc := range docs {
		var v T
		if err := doc.DataTo(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// ListOptions narrows a collection listing
type ListOptions struct {
	// OwnerID restricts the listing to documents created by this identity
	OwnerID string
	Limit   int
}

func (o ListOptions) apply(q docstore.Query) docstore.Query {
	if o.OwnerID != "" {
		q = q.Where(FieldCreatorID, o.OwnerID)
	}
	if o.Limit > 0 {
		q.Limit = o.Limit
	}
	return q
}

// Field names used in queries
const (
	FieldCreatorID  = "creatorId"
	FieldCustomerID = "customerId"
	FieldRole       = "role"

	FieldCustomerNumber = "customerNumber"
)
