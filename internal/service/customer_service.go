package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/crm-api/internal/access"
	"github.com/straye-as/crm-api/internal/docstore"
	"github.com/straye-as/crm-api/internal/domain"
	"github.com/straye-as/crm-api/internal/repository"
	"go.uber.org/zap"
)

// CustomerNumberFormat renders the customer sequence as the human-readable customer id
const CustomerNumberFormat = "CUST-%05d"

type CustomerService struct {
	store        docstore.Store
	customerRepo *repository.CustomerRepository
	metadataRepo *repository.MetadataRepository
	auth         authorizer
	logger       *zap.Logger
}

func NewCustomerService(
	store docstore.Store,
	customerRepo *repository.CustomerRepository,
	metadataRepo *repository.MetadataRepository,
	router *access.Router,
	logger *zap.Logger,
) *CustomerService {
	return &CustomerService{
		store:        store,
		customerRepo: customerRepo,
		metadataRepo: metadataRepo,
		auth:         authorizer{router: router, logger: logger},
		logger:       logger,
	}
}

// List returns the customers visible to the actor: all for Admin, own for Standard
func (s *CustomerService) List(ctx context.Context, limit int) ([]domain.Customer, error) {
	const action = "list customers"
	d, err := s.auth.resolve(ctx, action, access.Request{Kind: access.KindCustomer, Op: access.OpRead, Collection: true})
	if err != nil {
		return nil, err
	}

	customers, err := s.customerRepo.List(ctx, d.Path, repository.ListOptions{OwnerID: d.OwnerFilter, Limit: limit})
	if err != nil {
		s.logger.Error("failed to list customers", zap.Error(err))
		return nil, storeError(action, err)
	}
	return customers, nil
}

// Subscribe opens a live view of the same listing List returns
func (s *CustomerService) Subscribe(ctx context.Context) (*docstore.Subscription, error) {
	const action = "watch customers"
	d, err := s.auth.resolve(ctx, action, access.Request{Kind: access.KindCustomer, Op: access.OpRead, Collection: true})
	if err != nil {
		return nil, err
	}
	sub, err := s.store.Subscribe(ctx, s.customerRepo.ListQuery(d.Path, repository.ListOptions{OwnerID: d.OwnerFilter}))
	if err != nil {
		return nil, storeError(action, err)
	}
	return sub, nil
}

func (s *CustomerService) GetByID(ctx context.Context, id string) (*domain.Customer, error) {
	customer, _, err := s.authorizeCustomer(ctx, "view customer", access.OpRead, id)
	return customer, err
}

// Create stores a new customer owned by the actor and allocates its customer number
// in the same transaction.
func (s *CustomerService) Create(ctx context.Context, req *domain.CreateCustomerRequest) (*domain.Customer, error) {
	const action = "create customer"
	d, err := s.auth.resolve(ctx, action, access.Request{Kind: access.KindCustomer, Op: access.OpCreate})
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	customer := &domain.Customer{
		ID:        uuid.New().String(),
		CreatorID: d.AssignOwner,
		CreatedAt: now,
		UpdatedAt: now,
	}
	applyCustomerFields(customer, (*domain.UpdateCustomerRequest)(req))

	err = s.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		number, err := s.metadataRepo.WithTx(tx).NextCustomerNumber(ctx)
		if err != nil {
			return fmt.Errorf("failed to allocate customer number: %w", err)
		}
		customer.Number = number
		customer.CustomerID = fmt.Sprintf(CustomerNumberFormat, number)
		return s.customerRepo.WithTx(tx).Create(ctx, d.Path, customer)
	})
	if err != nil {
		s.logger.Error("failed to create customer", zap.Error(err))
		return nil, storeError(action, err)
	}

	s.logger.Info("customer created",
		zap.String("customer_id", customer.ID),
		zap.String("customer_number", customer.CustomerID),
		zap.String("creator_id", customer.CreatorID),
	)
	return customer, nil
}

// Update replaces the editable fields. Owner, customer number and creation time are kept.
func (s *CustomerService) Update(ctx context.Context, id string, req *domain.UpdateCustomerRequest) (*domain.Customer, error) {
	const action = "update customer"
	customer, d, err := s.authorizeCustomer(ctx, action, access.OpUpdate, id)
	if err != nil {
		return nil, err
	}

	applyCustomerFields(customer, req)
	customer.UpdatedAt = time.Now().UTC()

	if err := s.customerRepo.Update(ctx, d.Path, customer); err != nil {
		s.logger.Error("failed to update customer", zap.String("customer_id", id), zap.Error(err))
		return nil, storeError(action, err)
	}
	return customer, nil
}

// Delete removes the customer. Opportunities referencing it are left in place.
func (s *CustomerService) Delete(ctx context.Context, id string) error {
	const action = "delete customer"
	_, d, err := s.authorizeCustomer(ctx, action, access.OpDelete, id)
	if err != nil {
		return err
	}

	if err := s.customerRepo.Delete(ctx, d.Path, id); err != nil {
		s.logger.Error("failed to delete customer", zap.String("customer_id", id), zap.Error(err))
		return storeError(action, err)
	}
	s.logger.Info("customer deleted", zap.String("customer_id", id))
	return nil
}

func (s *CustomerService) authorizeCustomer(ctx context.Context, action string, op access.Operation, id string) (*domain.Customer, access.Decision, error) {
	return authorizeRecord(ctx, s.auth, action,
		access.Request{Kind: access.KindCustomer, Op: op},
		func(ctx context.Context, collection string) (*domain.Customer, error) {
			return s.customerRepo.Get(ctx, collection, id)
		},
		func(c *domain.Customer) string { return c.CreatorID },
	)
}

func applyCustomerFields(c *domain.Customer, req *domain.UpdateCustomerRequest) {
	c.CustomerType = req.CustomerType
	c.CompanyName = strings.TrimSpace(req.CompanyName)
	c.FirstName = strings.TrimSpace(req.FirstName)
	c.LastName = strings.TrimSpace(req.LastName)
	c.Email = strings.TrimSpace(req.Email)
	c.Phone = req.Phone
	c.Website = req.Website
	c.Street = req.Street
	c.City = req.City
	c.PostalCode = req.PostalCode
	c.Country = req.Country
	c.Industry = req.Industry
	c.CustomerSince = req.CustomerSince
}
