package repository

import (
	"context"

	"github.com/straye-as/crm-api/internal/docstore"
	"github.com/straye-as/crm-api/internal/domain"
)

type CustomerRepository struct {
	db handle
}

func NewCustomerRepository(store docstore.Store) *CustomerRepository {
	return &CustomerRepository{db: store}
}

// WithTx returns a repository that reads and writes through tx
func (r *CustomerRepository) WithTx(tx docstore.Tx) *CustomerRepository {
	return &CustomerRepository{db: tx}
}

func (r *CustomerRepository) Get(ctx context.Context, collection, id string) (*domain.Customer, error) {
	return getDocument[domain.Customer](ctx, r.db, docPath(collection, id))
}

func (r *CustomerRepository) Create(ctx context.Context, collection string, customer *domain.Customer) error {
	return r.db.Create(ctx, docPath(collection, customer.ID), customer)
}

func (r *CustomerRepository) Update(ctx context.Context, collection string, customer *domain.Customer) error {
	return r.db.Set(ctx, docPath(collection, customer.ID), customer, false)
}

func (r *CustomerRepository) Delete(ctx context.Context, collection, id string) error {
	return r.db.Delete(ctx, docPath(collection, id))
}

// ListQuery builds the query List runs; live views subscribe to the same query
func (r *CustomerRepository) ListQuery(collection string, opts ListOptions) docstore.Query {
	return opts.apply(docstore.Query{Collection: collection, OrderBy: FieldCustomerNumber, Descending: true})
}

func (r *CustomerRepository) List(ctx context.Context, collection string, opts ListOptions) ([]domain.Customer, error) {
	return queryDocuments[domain.Customer](ctx, r.db, r.ListQuery(collection, opts))
}

func docPath(collection, id string) string {
	return collection + "/" + id
}
