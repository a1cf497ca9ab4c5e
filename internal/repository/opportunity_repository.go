package repository

import (
	"context"

	"github.com/straye-as/crm-api/internal/docstore"
	"github.com/straye-as/crm-api/internal/domain"
)

type OpportunityRepository struct {
	db handle
}

func NewOpportunityRepository(store docstore.Store) *OpportunityRepository {
	return &OpportunityRepository{db: store}
}

func (r *OpportunityRepository) WithTx(tx docstore.Tx) *OpportunityRepository {
	return &OpportunityRepository{db: tx}
}

func (r *OpportunityRepository) Get(ctx context.Context, collection, id string) (*domain.Opportunity, error) {
	return getDocument[domain.Opportunity](ctx, r.db, docPath(collection, id))
}

func (r *OpportunityRepository) Create(ctx context.Context, collection string, opp *domain.Opportunity) error {
	return r.db.Create(ctx, docPath(collection, opp.ID), opp)
}

func (r *OpportunityRepository) Update(ctx context.Context, collection string, opp *domain.Opportunity) error {
	return r.db.Set(ctx, docPath(collection, opp.ID), opp, false)
}

func (r *OpportunityRepository) Delete(ctx context.Context, collection, id string) error {
	return r.db.Delete(ctx, docPath(collection, id))
}

// ListQuery lists opportunities, optionally only those of one customer
func (r *OpportunityRepository) ListQuery(collection, customerID string, opts ListOptions) docstore.Query {
	q := docstore.Query{Collection: collection, OrderBy: "name"}
	if customerID != "" {
		q = q.Where(FieldCustomerID, customerID)
	}
	return opts.apply(q)
}

func (r *OpportunityRepository) List(ctx context.Context, collection, customerID string, opts ListOptions) ([]domain.Opportunity, error) {
	return queryDocuments[domain.Opportunity](ctx, r.db, r.ListQuery(collection, customerID, opts))
}
