package service_test

import (
	"context"
	"testing"

	"github.com/straye-as/crm-api/internal/access"
	"github.com/straye-as/crm-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCustomerService_Visibility(t *testing.T) {
	f := setupServices(t, nil)

	created, err := f.customers.Create(as(userA), companyRequest("Acme AS"))
	require.NoError(t, err)
	assert.Equal(t, userA.ID, created.CreatorID)

	t.Run("other standard user does not see it", func(t *testing.T) {
		list, err := f.customers.List(as(userB), 0)
		require.NoError(t, err)
		assert.Empty(t, list)

		_, err = f.customers.GetByID(as(userB), created.ID)
		assertKind(t, err, domain.KindAccessDenied)
	})

	t.Run("creator sees it", func(t *testing.T) {
		list, err := f.customers.List(as(userA), 0)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, created.ID, list[0].ID)

		got, err := f.customers.GetByID(as(userA), created.ID)
		require.NoError(t, err)
		assert.Equal(t, "Acme AS", got.CompanyName)
	})

	t.Run("admin sees everything", func(t *testing.T) {
		_, err := f.customers.Create(as(userB), companyRequest("Beta AS"))
		require.NoError(t, err)

		list, err := f.customers.List(as(admin), 0)
		require.NoError(t, err)
		assert.Len(t, list, 2)
	})

	t.Run("anonymous is rejected", func(t *testing.T) {
		_, err := f.customers.List(as(nil), 0)
		assertKind(t, err, domain.KindAuthRequired)

		_, err = f.customers.Create(as(nil), companyRequest("Nobody AS"))
		assertKind(t, err, domain.KindAuthRequired)
	})
}

func TestCustomerService_UpdateAndDeleteOwnership(t *testing.T) {
	f := setupServices(t, nil)

	created, err := f.customers.Create(as(userA), companyRequest("Acme AS"))
	require.NoError(t, err)

	req := domain.UpdateCustomerRequest(*companyRequest("Acme Holding AS"))

	_, err = f.customers.Update(as(userB), created.ID, &req)
	assertKind(t, err, domain.KindAccessDenied)

	err = f.customers.Delete(as(userB), created.ID)
	assertKind(t, err, domain.KindAccessDenied)

	updated, err := f.customers.Update(as(userA), created.ID, &req)
	require.NoError(t, err)
	assert.Equal(t, "Acme Holding AS", updated.CompanyName)
	assert.Equal(t, created.CreatorID, updated.CreatorID)
	assert.Equal(t, created.CustomerID, updated.CustomerID)
	assert.True(t, created.CreatedAt.Equal(updated.CreatedAt))

	// admin may edit records it does not own; ownership is kept
	req.City = "Bergen"
	updated, err = f.customers.Update(as(admin), created.ID, &req)
	require.NoError(t, err)
	assert.Equal(t, userA.ID, updated.CreatorID)

	require.NoError(t, f.customers.Delete(as(userA), created.ID))
	_, err = f.customers.GetByID(as(admin), created.ID)
	assertKind(t, err, domain.KindNotFound)
}

func TestCustomerService_MissingCustomer(t *testing.T) {
	f := setupServices(t, nil)

	_, err := f.customers.GetByID(as(userA), "does-not-exist")
	assertKind(t, err, domain.KindNotFound)

	err = f.customers.Delete(as(admin), "does-not-exist")
	assertKind(t, err, domain.KindNotFound)
}

func TestCustomerService_SequenceIncrements(t *testing.T) {
	f := setupServices(t, nil)

	first, err := f.customers.Create(as(userA), companyRequest("First AS"))
	require.NoError(t, err)
	second, err := f.customers.Create(as(userB), companyRequest("Second AS"))
	require.NoError(t, err)

	assert.Equal(t, "CUST-00001", first.CustomerID)
	assert.Equal(t, "CUST-00002", second.CustomerID)

	// admin list is ordered newest number first
	list, err := f.customers.List(as(admin), 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "CUST-00002", list[0].CustomerID)

	limited, err := f.customers.List(as(admin), 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestCustomerService_ListOrdersByNumberPastFiveDigits(t *testing.T) {
	f := setupServices(t, nil)
	ctx := context.Background()
	require.NoError(t, f.store.Set(ctx, access.MetadataPath(access.MetadataCustomerSequence),
		domain.CustomerSequence{Last: 99998}, false))

	low, err := f.customers.Create(as(userA), companyRequest("Low AS"))
	require.NoError(t, err)
	high, err := f.customers.Create(as(userA), companyRequest("High AS"))
	require.NoError(t, err)
	assert.Equal(t, "CUST-99999", low.CustomerID)
	assert.Equal(t, "CUST-100000", high.CustomerID)
	assert.Equal(t, 100000, high.Number)

	list, err := f.customers.List(as(userA), 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "CUST-100000", list[0].CustomerID)
	assert.Equal(t, "CUST-99999", list[1].CustomerID)
}
