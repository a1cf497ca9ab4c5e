package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/straye-as/crm-api/internal/access"
	"github.com/straye-as/crm-api/internal/docstore"
	"github.com/straye-as/crm-api/internal/domain"
	"github.com/straye-as/crm-api/internal/repository"
	"go.uber.org/zap"
)

// MetadataService serves the reference lists. Reads may be public; writes are Admin only.
type MetadataService struct {
	store        docstore.Store
	metadataRepo *repository.MetadataRepository
	auth         authorizer
	logger       *zap.Logger
}

func NewMetadataService(
	store docstore.Store,
	metadataRepo *repository.MetadataRepository,
	router *access.Router,
	logger *zap.Logger,
) *MetadataService {
	return &MetadataService{
		store:        store,
		metadataRepo: metadataRepo,
		auth:         authorizer{router: router, logger: logger},
		logger:       logger,
	}
}

func (s *MetadataService) Countries(ctx context.Context) ([]domain.Country, error) {
	const action = "list countries"
	d, err := s.auth.resolve(ctx, action, metadataRequest(access.OpRead, access.MetadataCountries))
	if err != nil {
		return nil, err
	}
	list, err := s.metadataRepo.GetCountries(ctx, d.Path)
	if err != nil {
		return nil, storeError(action, err)
	}
	return list.Items, nil
}

// UpsertCountry adds the country or replaces the entry with the same code
func (s *MetadataService) UpsertCountry(ctx context.Context, req *domain.UpsertCountryRequest) ([]domain.Country, error) {
	const action = "save country"
	d, err := s.auth.resolve(ctx, action, metadataRequest(access.OpUpdate, access.MetadataCountries))
	if err != nil {
		return nil, err
	}

	entry := domain.Country{Code: strings.ToUpper(strings.TrimSpace(req.Code)), Name: strings.TrimSpace(req.Name)}
	var items []domain.Country
	err = s.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		repo := s.metadataRepo.WithTx(tx)
		list, err := repo.GetCountries(ctx, d.Path)
		if err != nil {
			return err
		}
		list.Items = upsertEntry(list.Items, entry, func(c domain.Country) string { return c.Code })
		list.UpdatedAt = time.Now().UTC()
		items = list.Items
		return repo.SetCountries(ctx, d.Path, list)
	})
	if err != nil {
		s.logger.Error("failed to save country", zap.String("code", entry.Code), zap.Error(err))
		return nil, storeError(action, err)
	}
	return items, nil
}

func (s *MetadataService) DeleteCountry(ctx context.Context, code string) ([]domain.Country, error) {
	const action = "delete country"
	d, err := s.auth.resolve(ctx, action, metadataRequest(access.OpDelete, access.MetadataCountries))
	if err != nil {
		return nil, err
	}

	var items []domain.Country
	err = s.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		repo := s.metadataRepo.WithTx(tx)
		list, err := repo.GetCountries(ctx, d.Path)
		if err != nil {
			return err
		}
		var found bool
		list.Items, found = removeEntry(list.Items, code, func(c domain.Country) string { return c.Code })
		if !found {
			return docstore.ErrNotFound
		}
		list.UpdatedAt = time.Now().UTC()
		items = list.Items
		return repo.SetCountries(ctx, d.Path, list)
	})
	if err != nil {
		return nil, storeError(action, err)
	}
	return items, nil
}

func (s *MetadataService) Currencies(ctx context.Context) ([]domain.Currency, error) {
	const action = "list currencies"
	d, err := s.auth.resolve(ctx, action, metadataRequest(access.OpRead, access.MetadataCurrencies))
	if err != nil {
		return nil, err
	}
	list, err := s.metadataRepo.GetCurrencies(ctx, d.Path)
	if err != nil {
		return nil, storeError(action, err)
	}
	return list.Items, nil
}

func (s *MetadataService) UpsertCurrency(ctx context.Context, req *domain.UpsertCurrencyRequest) ([]domain.Currency, error) {
	const action = "save currency"
	d, err := s.auth.resolve(ctx, action, metadataRequest(access.OpUpdate, access.MetadataCurrencies))
	if err != nil {
		return nil, err
	}

	entry := domain.Currency{
		Code:   strings.ToUpper(strings.TrimSpace(req.Code)),
		Name:   strings.TrimSpace(req.Name),
		Symbol: strings.TrimSpace(req.Symbol),
	}
	var items []domain.Currency
	err = s.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		repo := s.metadataRepo.WithTx(tx)
		list, err := repo.GetCurrencies(ctx, d.Path)
		if err != nil {
			return err
		}
		list.Items = upsertEntry(list.Items, entry, func(c domain.Currency) string { return c.Code })
		list.UpdatedAt = time.Now().UTC()
		items = list.Items
		return repo.SetCurrencies(ctx, d.Path, list)
	})
	if err != nil {
		s.logger.Error("failed to save currency", zap.String("code", entry.Code), zap.Error(err))
		return nil, storeError(action, err)
	}
	return items, nil
}

func (s *MetadataService) DeleteCurrency(ctx context.Context, code string) ([]domain.Currency, error) {
	const action = "delete currency"
	d, err := s.auth.resolve(ctx, action, metadataRequest(access.OpDelete, access.MetadataCurrencies))
	if err != nil {
		return nil, err
	}

	var items []domain.Currency
	err = s.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		repo := s.metadataRepo.WithTx(tx)
		list, err := repo.GetCurrencies(ctx, d.Path)
		if err != nil {
			return err
		}
		var found bool
		list.Items, found = removeEntry(list.Items, code, func(c domain.Currency) string { return c.Code })
		if !found {
			return docstore.ErrNotFound
		}
		list.UpdatedAt = time.Now().UTC()
		items = list.Items
		return repo.SetCurrencies(ctx, d.Path, list)
	})
	if err != nil {
		return nil, storeError(action, err)
	}
	return items, nil
}

func metadataRequest(op access.Operation, name string) access.Request {
	return access.Request{Kind: access.KindMetadata, Op: op, Name: name}
}

// upsertEntry replaces the entry with the same code or appends it, keeping items sorted by code
func upsertEntry[T any](items []T, entry T, code func(T) string) []T {
	out := make([]T, 0, len(items)+1)
	replaced := false
	for _, item := range items {
		if strings.EqualFold(code(item), code(entry)) {
			out = append(out, entry)
			replaced = true
			continue
		}
		out = append(out, item)
	}
	if !replaced {
		out = append(out, entry)
	}
	sort.SliceStable(out, func(i, j int) bool { return code(out[i]) < code(out[j]) })
	return out
}

func removeEntry[T any](items []T, c string, code func(T) string) ([]T, bool) {
	out := make([]T, 0, len(items))
	found := false
	for _, item := range items {
		if strings.EqualFold(code(item), strings.TrimSpace(c)) {
			found = true
			continue
		}
		out = append(out, item)
	}
	return out, found
}
