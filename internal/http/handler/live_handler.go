package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/straye-as/crm-api/internal/auth"
	"github.com/straye-as/crm-api/internal/docstore"
	"github.com/straye-as/crm-api/internal/domain"
	"github.com/straye-as/crm-api/internal/live"
	"github.com/straye-as/crm-api/internal/repository"
	"github.com/straye-as/crm-api/internal/service"
	"go.uber.org/zap"
)

const defaultHeartbeat = 25 * time.Second

// LiveHandler streams list snapshots as server-sent events. Each client (X-Client-ID) of
// an actor has one open stream; opening another view ends the previous stream.
type LiveHandler struct {
	registry           *live.Registry
	customerService    *service.CustomerService
	opportunityService *service.OpportunityService
	priceBookService   *service.PriceBookService
	userService        *service.UserService
	heartbeat          time.Duration
	logger             *zap.Logger
}

func NewLiveHandler(
	registry *live.Registry,
	customerService *service.CustomerService,
	opportunityService *service.OpportunityService,
	priceBookService *service.PriceBookService,
	userService *service.UserService,
	heartbeat time.Duration,
	logger *zap.Logger,
) *LiveHandler {
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeat
	}
	return &LiveHandler{
		registry:           registry,
		customerService:    customerService,
		opportunityService: opportunityService,
		priceBookService:   priceBookService,
		userService:        userService,
		heartbeat:          heartbeat,
		logger:             logger,
	}
}

// Customers godoc
// @Summary Stream customers
// @Description Server-sent events with the caller's customer list after every change
// @Tags Live
// @Produce text/event-stream
// @Param X-Client-ID header string true "Identifies the client view"
// @Success 200 {object} domain.SnapshotEvent[domain.Customer]
// @Failure 400 {object} domain.APIError
// @Failure 401 {object} domain.APIError
// @Security BearerAuth
// @Router /live/customers [get]
func (h *LiveHandler) Customers(w http.ResponseWriter, r *http.Request) {
	streamView[domain.Customer](h, w, r, "customers", func(ctx context.Context) (*docstore.Subscription, error) {
		return h.customerService.Subscribe(ctx)
	})
}

// Opportunities godoc
// @Summary Stream opportunities
// @Tags Live
// @Produce text/event-stream
// @Param X-Client-ID header string true "Identifies the client view"
// @Param customerId query string false "Only opportunities of this customer"
// @Success 200 {object} domain.SnapshotEvent[domain.Opportunity]
// @Security BearerAuth
// @Router /live/opportunities [get]
func (h *LiveHandler) Opportunities(w http.ResponseWriter, r *http.Request) {
	customerID := r.URL.Query().Get("customerId")
	streamView[domain.Opportunity](h, w, r, "opportunities", func(ctx context.Context) (*docstore.Subscription, error) {
		return h.opportunityService.Subscribe(ctx, customerID)
	})
}

// PriceBook godoc
// @Summary Stream price book
// @Tags Live
// @Produce text/event-stream
// @Param X-Client-ID header string true "Identifies the client view"
// @Success 200 {object} domain.SnapshotEvent[domain.PriceBookItem]
// @Security BearerAuth
// @Router /live/price-book [get]
func (h *LiveHandler) PriceBook(w http.ResponseWriter, r *http.Request) {
	streamView[domain.PriceBookItem](h, w, r, "price-book", func(ctx context.Context) (*docstore.Subscription, error) {
		return h.priceBookService.Subscribe(ctx)
	})
}

// Users godoc
// @Summary Stream users
// @Tags Live
// @Produce text/event-stream
// @Param X-Client-ID header string true "Identifies the client view"
// @Success 200 {object} domain.SnapshotEvent[domain.User]
// @Security BearerAuth
// @Router /live/users [get]
func (h *LiveHandler) Users(w http.ResponseWriter, r *http.Request) {
	streamView[domain.User](h, w, r, "users", func(ctx context.Context) (*docstore.Subscription, error) {
		return h.userService.Subscribe(ctx)
	})
}

func clientID(r *http.Request) string {
	if id := r.Header.Get("X-Client-ID"); id != "" {
		return id
	}
	return r.URL.Query().Get("client")
}

func streamView[T any](h *LiveHandler, w http.ResponseWriter, r *http.Request, view string, open live.OpenFunc) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		h.logger.Error("streaming not supported by response writer")
		respondWithError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	actor := auth.ActorFromContext(r.Context())
	if actor == nil {
		respondWithError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	client := clientID(r)
	handle, err := h.registry.Acquire(r.Context(), actor.ID, client, view, open)
	if err != nil {
		switch {
		case errors.Is(err, live.ErrMissingClient):
			respondWithError(w, http.StatusBadRequest, "X-Client-ID header or client query parameter is required")
		case errors.Is(err, live.ErrClosed):
			respondWithError(w, http.StatusServiceUnavailable, "server is shutting down")
		default:
			respondError(w, err)
		}
		return
	}
	defer handle.Release()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	log := h.logger.With(zap.String("actor_id", actor.ID), zap.String("client_id", client), zap.String("view", view))
	log.Debug("live stream opened")
	defer log.Debug("live stream closed")

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case snap, ok := <-handle.Snapshots():
			if !ok {
				return
			}
			if err := writeSnapshot[T](w, view, snap); err != nil {
				log.Warn("failed to write live snapshot", zap.Error(err))
				return
			}
			flusher.Flush()
		}
	}
}

func writeSnapshot[T any](w http.ResponseWriter, view string, snap docstore.Snapshot) error {
	if snap.Err != nil {
		return writeEvent(w, "error", domain.APIError{
			Type:   domain.ErrorTypeUnavailable,
			Title:  http.StatusText(http.StatusServiceUnavailable),
			Status: http.StatusServiceUnavailable,
			Detail: fmt.Sprintf("Could not refresh %s right now.", view),
		})
	}

	items, err := repository.DecodeAll[T](snap.Docs)
	if err != nil {
		return err
	}
	return writeEvent(w, "snapshot", domain.SnapshotEvent[T]{
		Resource: view,
		Data:     items,
		ReadAt:   snap.ReadAt,
	})
}

func writeEvent(w http.ResponseWriter, event string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	return err
}
