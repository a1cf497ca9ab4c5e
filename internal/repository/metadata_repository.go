package repository

import (
	"context"
	"errors"

	"github.com/straye-as/crm-api/internal/access"
	"github.com/straye-as/crm-api/internal/docstore"
	"github.com/straye-as/crm-api/internal/domain"
)

// MetadataRepository reads and writes the metadata singletons
type MetadataRepository struct {
	db handle
}

func NewMetadataRepository(store docstore.Store) *MetadataRepository {
	return &MetadataRepository{db: store}
}

func (r *MetadataRepository) WithTx(tx docstore.Tx) *MetadataRepository {
	return &MetadataRepository{db: tx}
}

// GetCountries reads the countries list at path; a missing document is an empty list
func (r *MetadataRepository) GetCountries(ctx context.Context, path string) (*domain.ReferenceList[domain.Country], error) {
	return getList[domain.Country](ctx, r.db, path)
}

func (r *MetadataRepository) SetCountries(ctx context.Context, path string, list *domain.ReferenceList[domain.Country]) error {
	return r.db.Set(ctx, path, list, false)
}

// GetCurrencies reads the currencies list at path; a missing document is an empty list
func (r *MetadataRepository) GetCurrencies(ctx context.Context, path string) (*domain.ReferenceList[domain.Currency], error) {
	return getList[domain.Currency](ctx, r.db, path)
}

func (r *MetadataRepository) SetCurrencies(ctx context.Context, path string, list *domain.ReferenceList[domain.Currency]) error {
	return r.db.Set(ctx, path, list, false)
}

// GetAdminSummary returns docstore.ErrNotFound until the first summary is written
func (r *MetadataRepository) GetAdminSummary(ctx context.Context) (*domain.AdminSummary, error) {
	return getDocument[domain.AdminSummary](ctx, r.db, access.MetadataPath(access.MetadataAdminSummary))
}

func (r *MetadataRepository) SetAdminSummary(ctx context.Context, summary *domain.AdminSummary) error {
	return r.db.Set(ctx, access.MetadataPath(access.MetadataAdminSummary), summary, false)
}

// NextCustomerNumber increments the customer sequence and returns the new value.
// Call it on a repository bound to the transaction that writes the customer.
func (r *MetadataRepository) NextCustomerNumber(ctx context.Context) (int, error) {
	path := access.MetadataPath(access.MetadataCustomerSequence)
	seq, err := getDocument[domain.CustomerSequence](ctx, r.db, path)
	switch {
	case errors.Is(err, docstore.ErrNotFound):
		seq = &domain.CustomerSequence{}
	case err != nil:
		return 0, err
	}

	seq.Last++
	if err := r.db.Set(ctx, path, seq, false); err != nil {
		return 0, err
	}
	return seq.Last, nil
}

func getList[T any](ctx context.Context, db handle, path string) (*domain.ReferenceList[T], error) {
	list, err := getDocument[domain.ReferenceList[T]](ctx, db, path)
	if errors.Is(err, docstore.ErrNotFound) {
		return &domain.ReferenceList[T]{Items: []T{}}, nil
	}
	if err != nil {
		return nil, err
	}
	if list.Items == nil {
		list.Items = []T{}
	}
	return list, nil
}
