package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/straye-as/crm-api/internal/access"
	"github.com/straye-as/crm-api/internal/auth"
	"github.com/straye-as/crm-api/internal/docstore"
	"github.com/straye-as/crm-api/internal/domain"
	"github.com/straye-as/crm-api/internal/repository"
	"go.uber.org/zap"
)

// UserService manages user records and keeps the admin summary in step with them
type UserService struct {
	store    docstore.Store
	userRepo *repository.UserRepository
	summary  *AdminSummaryService
	auth     authorizer
	logger   *zap.Logger
}

func NewUserService(
	store docstore.Store,
	userRepo *repository.UserRepository,
	summary *AdminSummaryService,
	router *access.Router,
	logger *zap.Logger,
) *UserService {
	return &UserService{
		store:    store,
		userRepo: userRepo,
		summary:  summary,
		auth:     authorizer{router: router, logger: logger},
		logger:   logger,
	}
}

// OwnRole returns the role stored on uid's own record, or "" when it has none yet.
// It runs before the actor is known, as that identity reading itself.
func (s *UserService) OwnRole(ctx context.Context, uid string) (domain.Role, error) {
	d := s.auth.router.Resolve(access.Request{
		Actor:   &access.Actor{ID: uid},
		Kind:    access.KindUserRecord,
		Op:      access.OpRead,
		OwnerID: uid,
	})
	if err := d.Err("read own user record"); err != nil {
		return "", err
	}

	user, err := s.userRepo.Get(ctx, d.Path)
	if errors.Is(err, docstore.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", storeError("read own user record", err)
	}
	return user.Role, nil
}

// RecordLogin creates the actor's own record as Standard on first sign-in and updates
// lastLogin afterwards.
func (s *UserService) RecordLogin(ctx context.Context) (*domain.User, error) {
	const action = "record sign-in"
	actor := auth.ActorFromContext(ctx)
	var uid string
	if actor != nil {
		uid = actor.ID
	}
	d, err := s.auth.resolve(ctx, action, access.Request{Kind: access.KindUserRecord, Op: access.OpCreate, OwnerID: uid})
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	user, err := s.userRepo.Get(ctx, d.Path)
	switch {
	case errors.Is(err, docstore.ErrNotFound):
		user = &domain.User{
			ID:          actor.ID,
			Email:       strings.TrimSpace(actor.Email),
			DisplayName: actor.DisplayName,
			Role:        domain.RoleStandard,
			CreatedAt:   now,
			LastLogin:   &now,
		}
		err = s.userRepo.Create(ctx, d.Path, user)
		if err == nil {
			s.logger.Info("user record created on sign-in", zap.String("user_id", user.ID))
			s.recomputeSummary(ctx)
			return user, nil
		}
		if !errors.Is(err, docstore.ErrAlreadyExists) {
			s.logger.Error("failed to create user record", zap.String("user_id", actor.ID), zap.Error(err))
			return nil, storeError(action, err)
		}
		// created concurrently by another request
		if user, err = s.userRepo.Get(ctx, d.Path); err != nil {
			return nil, storeError(action, err)
		}
	case err != nil:
		s.logger.Error("failed to read user record", zap.String("user_id", actor.ID), zap.Error(err))
		return nil, storeError(action, err)
	}

	fields := map[string]any{"lastLogin": now}
	if email := strings.TrimSpace(actor.Email); email != "" && email != user.Email {
		fields["email"] = email
		user.Email = email
	}
	if actor.DisplayName != "" && actor.DisplayName != user.DisplayName {
		fields["displayName"] = actor.DisplayName
		user.DisplayName = actor.DisplayName
	}
	if err := s.userRepo.UpdateFields(ctx, d.Path, fields); err != nil {
		s.logger.Error("failed to update last login", zap.String("user_id", actor.ID), zap.Error(err))
		return nil, storeError(action, err)
	}
	// role unchanged, so the admin summary still holds
	user.LastLogin = &now
	return user, nil
}

// Session describes the current actor
func (s *UserService) Session(ctx context.Context) (*domain.SessionDTO, error) {
	actor := auth.ActorFromContext(ctx)
	if actor == nil {
		return nil, domain.NewError(domain.KindAuthRequired, "view session", nil)
	}
	return &domain.SessionDTO{
		UserID:        actor.ID,
		Email:         actor.Email,
		DisplayName:   actor.DisplayName,
		Role:          actor.Role,
		EffectiveRole: actor.EffectiveRole(),
		Bootstrap:     actor.SessionAdmin,
	}, nil
}

func (s *UserService) List(ctx context.Context, limit int) ([]domain.User, error) {
	const action = "list users"
	d, err := s.auth.resolve(ctx, action, access.Request{Kind: access.KindUserRecord, Op: access.OpRead, Collection: true})
	if err != nil {
		return nil, err
	}
	users, err := s.userRepo.List(ctx, d.Path, repository.ListOptions{Limit: limit})
	if err != nil {
		s.logger.Error("failed to list users", zap.Error(err))
		return nil, storeError(action, err)
	}
	return users, nil
}

func (s *UserService) Subscribe(ctx context.Context) (*docstore.Subscription, error) {
	const action = "watch users"
	d, err := s.auth.resolve(ctx, action, access.Request{Kind: access.KindUserRecord, Op: access.OpRead, Collection: true})
	if err != nil {
		return nil, err
	}
	sub, err := s.store.Subscribe(ctx, s.userRepo.ListQuery(d.Path, repository.ListOptions{}))
	if err != nil {
		return nil, storeError(action, err)
	}
	return sub, nil
}

func (s *UserService) GetByID(ctx context.Context, uid string) (*domain.User, error) {
	const action = "view user"
	d, err := s.auth.resolve(ctx, action, access.Request{Kind: access.KindUserRecord, Op: access.OpRead, OwnerID: uid})
	if err != nil {
		return nil, err
	}
	user, err := s.userRepo.Get(ctx, d.Path)
	if err != nil {
		return nil, storeError(action, err)
	}
	return user, nil
}

// Create provisions a user record. Non-admins may only create their own, as Standard.
func (s *UserService) Create(ctx context.Context, req *domain.CreateUserRequest) (*domain.User, error) {
	const action = "create user"
	d, err := s.auth.resolve(ctx, action, access.Request{Kind: access.KindUserRecord, Op: access.OpCreate, OwnerID: req.ID})
	if err != nil {
		return nil, err
	}

	role := req.Role
	if !auth.ActorFromContext(ctx).IsAdmin() {
		role = domain.RoleStandard
	}
	user := &domain.User{
		ID:          req.ID,
		Email:       strings.TrimSpace(req.Email),
		DisplayName: strings.TrimSpace(req.DisplayName),
		Role:        role,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.userRepo.Create(ctx, d.Path, user); err != nil {
		if !errors.Is(err, docstore.ErrAlreadyExists) {
			s.logger.Error("failed to create user record", zap.String("user_id", req.ID), zap.Error(err))
		}
		return nil, storeError(action, err)
	}

	s.logger.Info("user record created",
		zap.String("user_id", user.ID),
		zap.String("role", string(user.Role)),
		zap.String("created_by", auth.ActorFromContext(ctx).ID),
	)
	s.recomputeSummary(ctx)
	return user, nil
}

// UpdateRole changes another user's role
func (s *UserService) UpdateRole(ctx context.Context, uid string, role domain.Role) (*domain.User, error) {
	const action = "change user role"
	if !role.IsValid() {
		return nil, domain.NewError(domain.KindInvalid, action, nil)
	}
	d, err := s.auth.resolve(ctx, action, access.Request{Kind: access.KindUserRecord, Op: access.OpUpdate, OwnerID: uid})
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.Get(ctx, d.Path)
	if err != nil {
		return nil, storeError(action, err)
	}
	if err := s.userRepo.UpdateFields(ctx, d.Path, map[string]any{"role": role}); err != nil {
		s.logger.Error("failed to update user role", zap.String("user_id", uid), zap.Error(err))
		return nil, storeError(action, err)
	}
	previous := user.Role
	user.Role = role

	s.logger.Info("user role changed",
		zap.String("user_id", uid),
		zap.String("previous_role", string(previous)),
		zap.String("role", string(role)),
		zap.String("changed_by", auth.ActorFromContext(ctx).ID),
	)
	s.recomputeSummary(ctx)
	return user, nil
}

// Delete removes another user's record
func (s *UserService) Delete(ctx context.Context, uid string) error {
	const action = "delete user"
	d, err := s.auth.resolve(ctx, action, access.Request{Kind: access.KindUserRecord, Op: access.OpDelete, OwnerID: uid})
	if err != nil {
		return err
	}

	if _, err := s.userRepo.Get(ctx, d.Path); err != nil {
		return storeError(action, err)
	}
	if err := s.userRepo.Delete(ctx, d.Path); err != nil {
		s.logger.Error("failed to delete user record", zap.String("user_id", uid), zap.Error(err))
		return storeError(action, err)
	}

	s.logger.Info("user record deleted", zap.String("user_id", uid))
	s.recomputeSummary(ctx)
	return nil
}

// recomputeSummary refreshes the admin summary after a user record write. The write
// itself has succeeded; a failure here is repaired by the reconcile job.
func (s *UserService) recomputeSummary(ctx context.Context) {
	if _, err := s.summary.Recompute(ctx); err != nil {
		s.logger.Error("failed to recompute admin summary", zap.Error(err))
	}
}
