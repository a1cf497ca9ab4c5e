package service_test

import (
	"context"
	"testing"

	"github.com/straye-as/crm-api/internal/access"
	"github.com/straye-as/crm-api/internal/auth"
	"github.com/straye-as/crm-api/internal/cache"
	"github.com/straye-as/crm-api/internal/docstore"
	"github.com/straye-as/crm-api/internal/domain"
	"github.com/straye-as/crm-api/internal/repository"
	"github.com/straye-as/crm-api/internal/service"
	"github.com/straye-as/crm-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type testFixtures struct {
	store         *docstore.SQLStore
	customers     *service.CustomerService
	opportunities *service.OpportunityService
	priceBook     *service.PriceBookService
	users         *service.UserService
	summary       *service.AdminSummaryService
	metadata      *service.MetadataService
	userRepo      *repository.UserRepository
	metadataRepo  *repository.MetadataRepository
}

func setupServices(t *testing.T, summaryCache cache.SummaryCache) *testFixtures {
	t.Helper()
	logger := zap.NewNop()
	store := testutil.NewStore(t)
	router := access.NewRouter(access.DefaultConfig())

	customerRepo := repository.NewCustomerRepository(store)
	opportunityRepo := repository.NewOpportunityRepository(store)
	priceBookRepo := repository.NewPriceBookRepository(store)
	userRepo := repository.NewUserRepository(store)
	metadataRepo := repository.NewMetadataRepository(store)

	summary := service.NewAdminSummaryService(userRepo, metadataRepo, summaryCache, logger)

	return &testFixtures{
		store:         store,
		customers:     service.NewCustomerService(store, customerRepo, metadataRepo, router, logger),
		opportunities: service.NewOpportunityService(store, opportunityRepo, customerRepo, router, logger),
		priceBook:     service.NewPriceBookService(store, priceBookRepo, router, logger),
		users:         service.NewUserService(store, userRepo, summary, router, logger),
		summary:       summary,
		metadata:      service.NewMetadataService(store, metadataRepo, router, logger),
		userRepo:      userRepo,
		metadataRepo:  metadataRepo,
	}
}

var (
	userA = &access.Actor{ID: "uid-a", Email: "a@example.com", Role: domain.RoleStandard}
	userB = &access.Actor{ID: "uid-b", Email: "b@example.com", Role: domain.RoleStandard}
	admin = &access.Actor{ID: "uid-admin", Email: "admin@example.com", Role: domain.RoleAdmin}
)

// as returns a context acting as actor; nil means unauthenticated
func as(actor *access.Actor) context.Context {
	ctx := context.Background()
	if actor == nil {
		return ctx
	}
	return auth.WithActor(ctx, actor)
}

func assertKind(t *testing.T, err error, kind domain.ErrorKind) {
	t.Helper()
	if assert.Error(t, err) {
		assert.Equal(t, kind, domain.KindOf(err), "error: %v", err)
	}
}

func companyRequest(name string) *domain.CreateCustomerRequest {
	return &domain.CreateCustomerRequest{
		CustomerType: domain.CustomerTypeCompany,
		CompanyName:  name,
		Email:        "post@example.com",
		Country:      "NO",
	}
}
