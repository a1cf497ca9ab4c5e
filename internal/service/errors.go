package service

import (
	"context"
	"errors"

	"github.com/straye-as/crm-api/internal/access"
	"github.com/straye-as/crm-api/internal/auth"
	"github.com/straye-as/crm-api/internal/docstore"
	"github.com/straye-as/crm-api/internal/domain"
	"github.com/straye-as/crm-api/internal/logger"
	"go.uber.org/zap"
)

// storeError classifies a document store failure for action. Errors that are already
// classified pass through unchanged.
func storeError(action string, err error) error {
	if err == nil {
		return nil
	}
	var classified *domain.Error
	if errors.As(err, &classified) {
		return err
	}
	switch {
	case errors.Is(err, docstore.ErrNotFound):
		return domain.NewError(domain.KindNotFound, action, err)
	case errors.Is(err, docstore.ErrAlreadyExists):
		return domain.NewError(domain.KindConflict, action, err)
	case errors.Is(err, docstore.ErrInvalidPath):
		return domain.NewError(domain.KindInvalid, action, err)
	default:
		return domain.NewError(domain.KindTransient, action, err)
	}
}

// authorizer runs access decisions for a service and logs denials
type authorizer struct {
	router *access.Router
	logger *zap.Logger
}

// resolve decides req for the actor in ctx. A denial is returned as a classified error.
func (a authorizer) resolve(ctx context.Context, action string, req access.Request) (access.Decision, error) {
	req.Actor = auth.ActorFromContext(ctx)
	d := a.router.Resolve(req)
	if !d.Allowed {
		actorID := ""
		if req.Actor != nil {
			actorID = req.Actor.ID
		}
		a.logger.Warn("access denied",
			append(logger.AccessFields(string(req.Kind), string(req.Op), string(d.Reason)),
				zap.String("actor_id", actorID),
				zap.String("action", action),
			)...,
		)
		return d, d.Err(action)
	}
	return d, nil
}

// authorizeRecord authorizes an operation on an existing owned document. The first
// decision assumes the actor owns the document so owner-independent denials never
// reach the store; the owner is then loaded through load and the request re-resolved.
func authorizeRecord[T any](
	ctx context.Context,
	a authorizer,
	action string,
	req access.Request,
	load func(ctx context.Context, collection string) (*T, error),
	owner func(*T) string,
) (*T, access.Decision, error) {
	probe := req
	if actor := auth.ActorFromContext(ctx); actor != nil {
		probe.OwnerID = actor.ID
	}
	d, err := a.resolve(ctx, action, probe)
	if err != nil {
		return nil, d, err
	}

	record, err := load(ctx, d.Path)
	if err != nil {
		return nil, d, storeError(action, err)
	}

	req.OwnerID = owner(record)
	d, err = a.resolve(ctx, action, req)
	if err != nil {
		return nil, d, err
	}
	return record, d, nil
}
