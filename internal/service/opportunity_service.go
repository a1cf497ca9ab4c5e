package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/crm-api/internal/access"
	"github.com/straye-as/crm-api/internal/docstore"
	"github.com/straye-as/crm-api/internal/domain"
	"github.com/straye-as/crm-api/internal/repository"
	"go.uber.org/zap"
)

type OpportunityService struct {
	store           docstore.Store
	opportunityRepo *repository.OpportunityRepository
	customerRepo    *repository.CustomerRepository
	auth            authorizer
	logger          *zap.Logger
}

func NewOpportunityService(
	store docstore.Store,
	opportunityRepo *repository.OpportunityRepository,
	customerRepo *repository.CustomerRepository,
	router *access.Router,
	logger *zap.Logger,
) *OpportunityService {
	return &OpportunityService{
		store:           store,
		opportunityRepo: opportunityRepo,
		customerRepo:    customerRepo,
		auth:            authorizer{router: router, logger: logger},
		logger:          logger,
	}
}

// List returns the visible opportunities, optionally only those of one customer
func (s *OpportunityService) List(ctx context.Context, customerID string, limit int) ([]domain.Opportunity, error) {
	const action = "list opportunities"
	d, err := s.auth.resolve(ctx, action, access.Request{Kind: access.KindOpportunity, Op: access.OpRead, Collection: true})
	if err != nil {
		return nil, err
	}

	opps, err := s.opportunityRepo.List(ctx, d.Path, customerID, repository.ListOptions{OwnerID: d.OwnerFilter, Limit: limit})
	if err != nil {
		s.logger.Error("failed to list opportunities", zap.Error(err))
		return nil, storeError(action, err)
	}
	return opps, nil
}

func (s *OpportunityService) Subscribe(ctx context.Context, customerID string) (*docstore.Subscription, error) {
	const action = "watch opportunities"
	d, err := s.auth.resolve(ctx, action, access.Request{Kind: access.KindOpportunity, Op: access.OpRead, Collection: true})
	if err != nil {
		return nil, err
	}
	sub, err := s.store.Subscribe(ctx, s.opportunityRepo.ListQuery(d.Path, customerID, repository.ListOptions{OwnerID: d.OwnerFilter}))
	if err != nil {
		return nil, storeError(action, err)
	}
	return sub, nil
}

func (s *OpportunityService) GetByID(ctx context.Context, id string) (*domain.Opportunity, error) {
	opp, _, err := s.authorizeOpportunity(ctx, "view opportunity", access.OpRead, id)
	return opp, err
}

// Create stores a new opportunity for a customer the actor can see
func (s *OpportunityService) Create(ctx context.Context, req *domain.CreateOpportunityRequest) (*domain.Opportunity, error) {
	const action = "create opportunity"
	d, err := s.auth.resolve(ctx, action, access.Request{Kind: access.KindOpportunity, Op: access.OpCreate})
	if err != nil {
		return nil, err
	}

	customer, err := s.visibleCustomer(ctx, action, req.CustomerID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	opp := &domain.Opportunity{
		ID:        uuid.New().String(),
		CreatorID: d.AssignOwner,
		CreatedAt: now,
		UpdatedAt: now,
	}
	applyOpportunityFields(opp, (*domain.UpdateOpportunityRequest)(req))
	opp.CustomerName = customer.DisplayName()

	if err := s.opportunityRepo.Create(ctx, d.Path, opp); err != nil {
		s.logger.Error("failed to create opportunity", zap.Error(err))
		return nil, storeError(action, err)
	}

	s.logger.Info("opportunity created",
		zap.String("opportunity_id", opp.ID),
		zap.String("customer_id", opp.CustomerID),
		zap.String("creator_id", opp.CreatorID),
	)
	return opp, nil
}

func (s *OpportunityService) Update(ctx context.Context, id string, req *domain.UpdateOpportunityRequest) (*domain.Opportunity, error) {
	const action = "update opportunity"
	opp, d, err := s.authorizeOpportunity(ctx, action, access.OpUpdate, id)
	if err != nil {
		return nil, err
	}

	customer, err := s.visibleCustomer(ctx, action, req.CustomerID)
	if err != nil {
		return nil, err
	}

	applyOpportunityFields(opp, req)
	opp.CustomerName = customer.DisplayName()
	opp.UpdatedAt = time.Now().UTC()

	if err := s.opportunityRepo.Update(ctx, d.Path, opp); err != nil {
		s.logger.Error("failed to update opportunity", zap.String("opportunity_id", id), zap.Error(err))
		return nil, storeError(action, err)
	}
	return opp, nil
}

func (s *OpportunityService) Delete(ctx context.Context, id string) error {
	const action = "delete opportunity"
	_, d, err := s.authorizeOpportunity(ctx, action, access.OpDelete, id)
	if err != nil {
		return err
	}

	if err := s.opportunityRepo.Delete(ctx, d.Path, id); err != nil {
		s.logger.Error("failed to delete opportunity", zap.String("opportunity_id", id), zap.Error(err))
		return storeError(action, err)
	}
	return nil
}

// visibleCustomer loads the referenced customer. A customer the actor may not read is
// reported as NotFound, the same as a missing one.
func (s *OpportunityService) visibleCustomer(ctx context.Context, action, customerID string) (*domain.Customer, error) {
	d, err := s.auth.resolve(ctx, action, access.Request{Kind: access.KindCustomer, Op: access.OpRead, Collection: true})
	if err != nil {
		return nil, err
	}

	customer, err := s.customerRepo.Get(ctx, d.Path, customerID)
	if err != nil {
		return nil, storeError(action, err)
	}
	if d.OwnerFilter != "" && customer.CreatorID != d.OwnerFilter {
		return nil, domain.NewError(domain.KindNotFound, action, docstore.ErrNotFound)
	}
	return customer, nil
}

func (s *OpportunityService) authorizeOpportunity(ctx context.Context, action string, op access.Operation, id string) (*domain.Opportunity, access.Decision, error) {
	return authorizeRecord(ctx, s.auth, action,
		access.Request{Kind: access.KindOpportunity, Op: op},
		func(ctx context.Context, collection string) (*domain.Opportunity, error) {
			return s.opportunityRepo.Get(ctx, collection, id)
		},
		func(o *domain.Opportunity) string { return o.CreatorID },
	)
}

func applyOpportunityFields(o *domain.Opportunity, req *domain.UpdateOpportunityRequest) {
	o.Name = strings.TrimSpace(req.Name)
	o.CustomerID = req.CustomerID
	o.Amount = req.Amount
	o.Currency = strings.ToUpper(strings.TrimSpace(req.Currency))
	o.Stage = req.Stage
	o.ExpectedCloseDate = req.ExpectedCloseDate
	o.Notes = req.Notes
}
