package service_test

import (
	"testing"

	"github.com/straye-as/crm-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadataService_Countries(t *testing.T) {
	f := setupServices(t, nil)

	countries, err := f.metadata.Countries(as(nil))
	require.NoError(t, err)
	assert.Empty(t, countries)

	_, err = f.metadata.UpsertCountry(as(userA), &domain.UpsertCountryRequest{Code: "NO", Name: "Norway"})
	assertKind(t, err, domain.KindAccessDenied)

	_, err = f.metadata.UpsertCountry(as(nil), &domain.UpsertCountryRequest{Code: "NO", Name: "Norway"})
	assertKind(t, err, domain.KindAuthRequired)

	_, err = f.metadata.UpsertCountry(as(admin), &domain.UpsertCountryRequest{Code: "se", Name: "Sweden"})
	require.NoError(t, err)
	countries, err = f.metadata.UpsertCountry(as(admin), &domain.UpsertCountryRequest{Code: "NO", Name: "Norge"})
	require.NoError(t, err)
	require.Len(t, countries, 2)
	assert.Equal(t, "NO", countries[0].Code)
	assert.Equal(t, "SE", countries[1].Code)

	countries, err = f.metadata.UpsertCountry(as(admin), &domain.UpsertCountryRequest{Code: "no", Name: "Norway"})
	require.NoError(t, err)
	require.Len(t, countries, 2)
	assert.Equal(t, "Norway", countries[0].Name)

	// public read sees the admin's writes
	countries, err = f.metadata.Countries(as(nil))
	require.NoError(t, err)
	assert.Len(t, countries, 2)

	countries, err = f.metadata.DeleteCountry(as(admin), "se")
	require.NoError(t, err)
	assert.Len(t, countries, 1)

	_, err = f.metadata.DeleteCountry(as(admin), "SE")
	assertKind(t, err, domain.KindNotFound)
}

func TestMetadataService_Currencies(t *testing.T) {
	f := setupServices(t, nil)

	currencies, err := f.metadata.UpsertCurrency(as(admin), &domain.UpsertCurrencyRequest{Code: "nok", Name: "Norwegian krone", Symbol: "kr"})
	require.NoError(t, err)
	require.Len(t, currencies, 1)
	assert.Equal(t, "NOK", currencies[0].Code)

	currencies, err = f.metadata.Currencies(as(userB))
	require.NoError(t, err)
	assert.Len(t, currencies, 1)

	_, err = f.metadata.DeleteCurrency(as(userB), "NOK")
	assertKind(t, err, domain.KindAccessDenied)

	currencies, err = f.metadata.DeleteCurrency(as(admin), "NOK")
	require.NoError(t, err)
	assert.Empty(t, currencies)
}
