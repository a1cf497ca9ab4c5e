package repository

import (
	"context"

	"github.com/straye-as/crm-api/internal/access"
	"github.com/straye-as/crm-api/internal/docstore"
	"github.com/straye-as/crm-api/internal/domain"
)

// PriceBookRepository stores items and the index documents that keep
// (normalized name, normalized currency) unique. Index writes belong in the same
// transaction as the item write.
type PriceBookRepository struct {
	db handle
}

func NewPriceBookRepository(store docstore.Store) *PriceBookRepository {
	return &PriceBookRepository{db: store}
}

func (r *PriceBookRepository) WithTx(tx docstore.Tx) *PriceBookRepository {
	return &PriceBookRepository{db: tx}
}

func (r *PriceBookRepository) Get(ctx context.Context, collection, id string) (*domain.PriceBookItem, error) {
	return getDocument[domain.PriceBookItem](ctx, r.db, docPath(collection, id))
}

func (r *PriceBookRepository) Create(ctx context.Context, collection string, item *domain.PriceBookItem) error {
	return r.db.Create(ctx, docPath(collection, item.ID), item)
}

func (r *PriceBookRepository) Update(ctx context.Context, collection string, item *domain.PriceBookItem) error {
	return r.db.Set(ctx, docPath(collection, item.ID), item, false)
}

func (r *PriceBookRepository) Delete(ctx context.Context, collection, id string) error {
	return r.db.Delete(ctx, docPath(collection, id))
}

func (r *PriceBookRepository) ListQuery(collection string, opts ListOptions) docstore.Query {
	return opts.apply(docstore.Query{Collection: collection, OrderBy: "itemName"})
}

func (r *PriceBookRepository) List(ctx context.Context, collection string, opts ListOptions) ([]domain.PriceBookItem, error) {
	return queryDocuments[domain.PriceBookItem](ctx, r.db, r.ListQuery(collection, opts))
}

// GetIndex returns the index entry claiming key
func (r *PriceBookRepository) GetIndex(ctx context.Context, key string) (*domain.PriceBookIndexEntry, error) {
	return getDocument[domain.PriceBookIndexEntry](ctx, r.db, docPath(access.PriceBookIndexCollection, key))
}

// ClaimIndex creates the index entry for key; it fails with docstore.ErrAlreadyExists when claimed
func (r *PriceBookRepository) ClaimIndex(ctx context.Context, key string, entry *domain.PriceBookIndexEntry) error {
	return r.db.Create(ctx, docPath(access.PriceBookIndexCollection, key), entry)
}

func (r *PriceBookRepository) ReleaseIndex(ctx context.Context, key string) error {
	return r.db.Delete(ctx, docPath(access.PriceBookIndexCollection, key))
}
