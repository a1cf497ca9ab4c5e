package service

import (
	"context"
	"errors"
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

// PriceBookService manages price-book items. Item writes and their uniqueness index
// entries commit together or not at all.
type PriceBookService struct {
	store         docstore.Store
	priceBookRepo *repository.PriceBookRepository
	auth          authorizer
	logger        *zap.Logger
}

func NewPriceBookService(
	store docstore.Store,
	priceBookRepo *repository.PriceBookRepository,
	router *access.Router,
	logger *zap.Logger,
) *PriceBookService {
	return &PriceBookService{
		store:         store,
		priceBookRepo: priceBookRepo,
		auth:          authorizer{router: router, logger: logger},
		logger:        logger,
	}
}

func (s *PriceBookService) List(ctx context.Context, limit int) ([]domain.PriceBookItem, error) {
	const action = "list price book"
	d, err := s.auth.resolve(ctx, action, access.Request{Kind: access.KindPriceBookItem, Op: access.OpRead, Collection: true})
	if err != nil {
		return nil, err
	}
	items, err := s.priceBookRepo.List(ctx, d.Path, repository.ListOptions{Limit: limit})
	if err != nil {
		s.logger.Error("failed to list price book", zap.Error(err))
		return nil, storeError(action, err)
	}
	return items, nil
}

func (s *PriceBookService) Subscribe(ctx context.Context) (*docstore.Subscription, error) {
	const action = "watch price book"
	d, err := s.auth.resolve(ctx, action, access.Request{Kind: access.KindPriceBookItem, Op: access.OpRead, Collection: true})
	if err != nil {
		return nil, err
	}
	sub, err := s.store.Subscribe(ctx, s.priceBookRepo.ListQuery(d.Path, repository.ListOptions{}))
	if err != nil {
		return nil, storeError(action, err)
	}
	return sub, nil
}

func (s *PriceBookService) GetByID(ctx context.Context, id string) (*domain.PriceBookItem, error) {
	const action = "view price book item"
	d, err := s.auth.resolve(ctx, action, access.Request{Kind: access.KindPriceBookItem, Op: access.OpRead})
	if err != nil {
		return nil, err
	}
	item, err := s.priceBookRepo.Get(ctx, d.Path, id)
	if err != nil {
		return nil, storeError(action, err)
	}
	return item, nil
}

// Create adds an item unless another item already has the same normalized name and currency
func (s *PriceBookService) Create(ctx context.Context, req *domain.CreatePriceBookItemRequest) (*domain.PriceBookItem, error) {
	const action = "create price book item"
	d, err := s.auth.resolve(ctx, action, access.Request{Kind: access.KindPriceBookItem, Op: access.OpCreate})
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	item := &domain.PriceBookItem{
		ID:        uuid.New().String(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	applyPriceBookFields(item, (*domain.UpdatePriceBookItemRequest)(req))
	key := access.PriceBookIndexKey(item.ItemName, item.Currency)

	err = s.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		repo := s.priceBookRepo.WithTx(tx)
		if err := checkIndexFree(ctx, repo, action, key, ""); err != nil {
			return err
		}
		if err := repo.ClaimIndex(ctx, key, indexEntry(item)); err != nil {
			return err
		}
		return repo.Create(ctx, d.Path, item)
	})
	if err != nil {
		s.logTxError(action, item, err)
		return nil, storeError(action, err)
	}

	s.logger.Info("price book item created",
		zap.String("item_id", item.ID),
		zap.String("item_name", item.ItemName),
		zap.String("currency", item.Currency),
	)
	return item, nil
}

// Update moves the index entry when the normalized name or currency changes
func (s *PriceBookService) Update(ctx context.Context, id string, req *domain.UpdatePriceBookItemRequest) (*domain.PriceBookItem, error) {
	const action = "update price book item"
	d, err := s.auth.resolve(ctx, action, access.Request{Kind: access.KindPriceBookItem, Op: access.OpUpdate})
	if err != nil {
		return nil, err
	}

	var item *domain.PriceBookItem
	err = s.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		repo := s.priceBookRepo.WithTx(tx)
		existing, err := repo.Get(ctx, d.Path, id)
		if err != nil {
			return err
		}
		oldKey := access.PriceBookIndexKey(existing.ItemName, existing.Currency)

		updated := *existing
		applyPriceBookFields(&updated, req)
		updated.UpdatedAt = time.Now().UTC()
		newKey := access.PriceBookIndexKey(updated.ItemName, updated.Currency)

		if newKey != oldKey {
			if err := checkIndexFree(ctx, repo, action, newKey, id); err != nil {
				return err
			}
			if err := repo.ReleaseIndex(ctx, oldKey); err != nil {
				return err
			}
			if err := repo.ClaimIndex(ctx, newKey, indexEntry(&updated)); err != nil {
				return err
			}
		}
		if err := repo.Update(ctx, d.Path, &updated); err != nil {
			return err
		}
		item = &updated
		return nil
	})
	if err != nil {
		s.logTxError(action, &domain.PriceBookItem{ID: id, ItemName: req.ItemName, Currency: req.Currency}, err)
		return nil, storeError(action, err)
	}
	return item, nil
}

// Delete removes the item and frees its name/currency pair
func (s *PriceBookService) Delete(ctx context.Context, id string) error {
	const action = "delete price book item"
	d, err := s.auth.resolve(ctx, action, access.Request{Kind: access.KindPriceBookItem, Op: access.OpDelete})
	if err != nil {
		return err
	}

	err = s.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		repo := s.priceBookRepo.WithTx(tx)
		existing, err := repo.Get(ctx, d.Path, id)
		if err != nil {
			return err
		}
		key := access.PriceBookIndexKey(existing.ItemName, existing.Currency)
		entry, err := repo.GetIndex(ctx, key)
		switch {
		case errors.Is(err, docstore.ErrNotFound):
		case err != nil:
			return err
		case entry.ItemID == id:
			if err := repo.ReleaseIndex(ctx, key); err != nil {
				return err
			}
		}
		return repo.Delete(ctx, d.Path, id)
	})
	if err != nil {
		s.logTxError(action, &domain.PriceBookItem{ID: id}, err)
		return storeError(action, err)
	}
	return nil
}

func (s *PriceBookService) logTxError(action string, item *domain.PriceBookItem, err error) {
	fields := []zap.Field{
		zap.String("action", action),
		zap.String("item_id", item.ID),
		zap.Error(err),
	}
	if domain.KindOf(err) == domain.KindConflict || errors.Is(err, docstore.ErrAlreadyExists) {
		s.logger.Info("price book write rejected",
			append(fields, zap.String("item_name", item.ItemName), zap.String("currency", item.Currency))...)
		return
	}
	s.logger.Error("price book write failed", fields...)
}

// checkIndexFree fails with Conflict when key is claimed by an item other than ownerID
func checkIndexFree(ctx context.Context, repo *repository.PriceBookRepository, action, key, ownerID string) error {
	entry, err := repo.GetIndex(ctx, key)
	switch {
	case errors.Is(err, docstore.ErrNotFound):
		return nil
	case err != nil:
		return err
	case entry.ItemID == ownerID:
		return nil
	default:
		return domain.NewError(domain.KindConflict, action,
			fmt.Errorf("an item named %q in %s already exists", entry.NormalizedName, strings.ToUpper(entry.NormalizedCurrency)))
	}
}

func indexEntry(item *domain.PriceBookItem) *domain.PriceBookIndexEntry {
	return &domain.PriceBookIndexEntry{
		ItemID:             item.ID,
		NormalizedName:     access.NormalizeKey(item.ItemName),
		NormalizedCurrency: access.NormalizeKey(item.Currency),
	}
}

func applyPriceBookFields(item *domain.PriceBookItem, req *domain.UpdatePriceBookItemRequest) {
	item.ItemName = strings.TrimSpace(req.ItemName)
	item.ItemType = req.ItemType
	item.UnitPrice = req.UnitPrice
	item.Currency = strings.TrimSpace(req.Currency)
	item.Description = req.Description
}
