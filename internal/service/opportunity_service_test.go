package service_test

import (
	"testing"

	"github.com/straye-as/crm-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func opportunityRequest(name, customerID string) *domain.CreateOpportunityRequest {
	return &domain.CreateOpportunityRequest{
		Name:       name,
		CustomerID: customerID,
		Amount:     125000,
		Currency:   "nok",
		Stage:      domain.StageProspecting,
	}
}

func TestOpportunityService_UnknownCustomer(t *testing.T) {
	f := setupServices(t, nil)

	_, err := f.opportunities.Create(as(userA), opportunityRequest("Deal", "no-such-customer"))
	assertKind(t, err, domain.KindNotFound)
}

func TestOpportunityService_CustomerMustBeVisible(t *testing.T) {
	f := setupServices(t, nil)

	customer, err := f.customers.Create(as(userA), companyRequest("Acme AS"))
	require.NoError(t, err)

	_, err = f.opportunities.Create(as(userB), opportunityRequest("Sneaky", customer.ID))
	assertKind(t, err, domain.KindNotFound)

	opp, err := f.opportunities.Create(as(admin), opportunityRequest("Admin deal", customer.ID))
	require.NoError(t, err)
	assert.Equal(t, admin.ID, opp.CreatorID)
}

func TestOpportunityService_CreateAndList(t *testing.T) {
	f := setupServices(t, nil)

	acme, err := f.customers.Create(as(userA), companyRequest("Acme AS"))
	require.NoError(t, err)
	beta, err := f.customers.Create(as(userA), companyRequest("Beta AS"))
	require.NoError(t, err)

	opp, err := f.opportunities.Create(as(userA), opportunityRequest("Rollout", acme.ID))
	require.NoError(t, err)
	assert.Equal(t, "Acme AS", opp.CustomerName)
	assert.Equal(t, "NOK", opp.Currency)
	assert.Equal(t, userA.ID, opp.CreatorID)

	_, err = f.opportunities.Create(as(userA), opportunityRequest("Audit", beta.ID))
	require.NoError(t, err)

	all, err := f.opportunities.List(as(userA), "", 0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Audit", all[0].Name)

	forAcme, err := f.opportunities.List(as(userA), acme.ID, 0)
	require.NoError(t, err)
	require.Len(t, forAcme, 1)
	assert.Equal(t, opp.ID, forAcme[0].ID)

	others, err := f.opportunities.List(as(userB), "", 0)
	require.NoError(t, err)
	assert.Empty(t, others)

	_, err = f.opportunities.GetByID(as(userB), opp.ID)
	assertKind(t, err, domain.KindAccessDenied)
}

func TestOpportunityService_Update(t *testing.T) {
	f := setupServices(t, nil)

	acme, err := f.customers.Create(as(userA), companyRequest("Acme AS"))
	require.NoError(t, err)
	beta, err := f.customers.Create(as(userA), companyRequest("Beta AS"))
	require.NoError(t, err)
	opp, err := f.opportunities.Create(as(userA), opportunityRequest("Rollout", acme.ID))
	require.NoError(t, err)

	req := domain.UpdateOpportunityRequest(*opportunityRequest("Rollout phase 2", beta.ID))
	req.Stage = domain.StageClosedWon

	_, err = f.opportunities.Update(as(userB), opp.ID, &req)
	assertKind(t, err, domain.KindAccessDenied)

	updated, err := f.opportunities.Update(as(userA), opp.ID, &req)
	require.NoError(t, err)
	assert.Equal(t, "Rollout phase 2", updated.Name)
	assert.Equal(t, "Beta AS", updated.CustomerName)
	assert.True(t, updated.Stage.IsClosed())
	assert.Equal(t, userA.ID, updated.CreatorID)
}

func TestOpportunityService_CustomerDeleteLeavesOpportunities(t *testing.T) {
	f := setupServices(t, nil)

	customer, err := f.customers.Create(as(userA), companyRequest("Acme AS"))
	require.NoError(t, err)
	opp, err := f.opportunities.Create(as(userA), opportunityRequest("Rollout", customer.ID))
	require.NoError(t, err)

	require.NoError(t, f.customers.Delete(as(userA), customer.ID))

	got, err := f.opportunities.GetByID(as(userA), opp.ID)
	require.NoError(t, err)
	assert.Equal(t, customer.ID, got.CustomerID)

	require.NoError(t, f.opportunities.Delete(as(userA), opp.ID))
	_, err = f.opportunities.GetByID(as(userA), opp.ID)
	assertKind(t, err, domain.KindNotFound)
}
