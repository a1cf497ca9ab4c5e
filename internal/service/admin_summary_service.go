package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/straye-as/crm-api/internal/cache"
	"github.com/straye-as/crm-api/internal/docstore"
	"github.com/straye-as/crm-api/internal/domain"
	"github.com/straye-as/crm-api/internal/repository"
	"go.uber.org/zap"
)

// AdminSummaryService maintains metadata/adminSummary, the aggregate the bootstrap
// policy reads to decide whether any Admin exists.
type AdminSummaryService struct {
	userRepo     *repository.UserRepository
	metadataRepo *repository.MetadataRepository
	cache        cache.SummaryCache
	logger       *zap.Logger
}

// NewAdminSummaryService creates the service. summaryCache may be nil.
func NewAdminSummaryService(
	userRepo *repository.UserRepository,
	metadataRepo *repository.MetadataRepository,
	summaryCache cache.SummaryCache,
	logger *zap.Logger,
) *AdminSummaryService {
	return &AdminSummaryService{
		userRepo:     userRepo,
		metadataRepo: metadataRepo,
		cache:        summaryCache,
		logger:       logger,
	}
}

// HasAnyAdmin reports whether an Admin user record exists. Only a positive cached value
// short-circuits the store read. A summary that was never written is computed on demand.
func (s *AdminSummaryService) HasAnyAdmin(ctx context.Context) (bool, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx)
		if err != nil {
			s.logger.Warn("failed to read admin summary cache", zap.Error(err))
		} else if cached != nil && cached.HasAnyAdmin {
			return true, nil
		}
	}

	summary, err := s.metadataRepo.GetAdminSummary(ctx)
	if errors.Is(err, docstore.ErrNotFound) {
		summary, err = s.Recompute(ctx)
	}
	if err != nil {
		return false, fmt.Errorf("failed to read admin summary: %w", err)
	}

	if summary.HasAnyAdmin {
		s.cacheSummary(ctx, summary)
	}
	return summary.HasAnyAdmin, nil
}

// Recompute counts Admin user records and persists the result
func (s *AdminSummaryService) Recompute(ctx context.Context) (*domain.AdminSummary, error) {
	count, err := s.userRepo.CountAdmins(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count admins: %w", err)
	}

	summary := &domain.AdminSummary{
		HasAnyAdmin: count > 0,
		AdminCount:  count,
		UpdatedAt:   time.Now().UTC(),
	}
	if err := s.metadataRepo.SetAdminSummary(ctx, summary); err != nil {
		return nil, fmt.Errorf("failed to write admin summary: %w", err)
	}
	s.cacheSummary(ctx, summary)
	return summary, nil
}

// Reconcile recomputes the summary and logs when the stored value had drifted
func (s *AdminSummaryService) Reconcile(ctx context.Context) (*domain.AdminSummary, error) {
	previous, err := s.metadataRepo.GetAdminSummary(ctx)
	if err != nil && !errors.Is(err, docstore.ErrNotFound) {
		return nil, fmt.Errorf("failed to read admin summary: %w", err)
	}

	summary, err := s.Recompute(ctx)
	if err != nil {
		return nil, err
	}

	if previous == nil || previous.AdminCount != summary.AdminCount || previous.HasAnyAdmin != summary.HasAnyAdmin {
		fields := []zap.Field{
			zap.Int("admin_count", summary.AdminCount),
			zap.Bool("has_any_admin", summary.HasAnyAdmin),
		}
		if previous != nil {
			fields = append(fields, zap.Int("previous_admin_count", previous.AdminCount))
		}
		s.logger.Info("admin summary reconciled", fields...)
	}
	return summary, nil
}

// cacheSummary stores positive summaries and evicts on negative ones
func (s *AdminSummaryService) cacheSummary(ctx context.Context, summary *domain.AdminSummary) {
	if s.cache == nil {
		return
	}
	var err error
	if summary.HasAnyAdmin {
		err = s.cache.Set(ctx, summary)
	} else {
		err = s.cache.Evict(ctx)
	}
	if err != nil {
		s.logger.Warn("failed to update admin summary cache", zap.Error(err))
	}
}
