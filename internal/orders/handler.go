package orders

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ecocart/storefront/internal/auth"
	"github.com/ecocart/storefront/internal/domain"
	"github.com/ecocart/storefront/internal/messaging"
	"github.com/ecocart/storefront/internal/web"
)

type Store interface {
	Create(ctx context.Context, order *domain.Order) error
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	ListByUser(ctx context.Context, userID primitive.ObjectID) ([]domain.Order, error)
}

type Handler struct {
	repo      Store
	products  ProductLookup
	publisher messaging.Publisher
	logger    *slog.Logger
}

// NewHandler wires the order endpoints. publisher may be nil when event
// publishing is disabled.
func NewHandler(repo Store, products ProductLookup, publisher messaging.Publisher, logger *slog.Logger) *Handler {
	return &Handler{
		repo:      repo,
		products:  products,
		publisher: publisher,
		logger:    logger,
	}
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	var req domain.CreateOrderRequest
	if err := web.DecodeJSON(r, &req); err != nil {
		web.WriteError(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Items) == 0 {
		web.WriteError(w, h.logger, http.StatusBadRequest, domain.ErrEmptyOrder.Error())
		return
	}

	catalog, err := h.products.GetByIDs(r.Context(), requestedIDs(req.Items))
	if err != nil {
		h.logger.Error("failed to load order products", "error", err, "user_id", user.ID.Hex())
		web.WriteError(w, h.logger, http.StatusInternalServerError, "internal server error")
		return
	}

	items, total, err := PriceItems(req.Items, catalog)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrProductNotFound):
			web.WriteError(w, h.logger, http.StatusNotFound, err.Error())
		default:
			web.WriteError(w, h.logger, http.StatusBadRequest, err.Error())
		}
		return
	}
	if req.Total != nil && !req.Total.Equal(total) {
		h.logger.Warn("client total mismatch", "user_id", user.ID.Hex(), "client_total", req.Total.String(), "total", total.String())
		web.WriteError(w, h.logger, http.StatusBadRequest, domain.ErrTotalMismatch.Error())
		return
	}

	shipping := req.ShippingAddress
	if shipping == nil {
		shipping = user.Address
	}

	order := &domain.Order{
		UserID:          user.ID,
		Items:           items,
		Total:           total,
		Status:          domain.OrderStatusPending,
		ShippingAddress: shipping,
	}
	if err := h.repo.Create(r.Context(), order); err != nil {
		h.logger.Error("failed to create order", "error", err, "user_id", user.ID.Hex())
		web.WriteError(w, h.logger, http.StatusInternalServerError, "internal server error")
		return
	}

	if h.publisher != nil {
		event := domain.OrderCreatedEvent{
			EventID:   uuid.NewString(),
			OrderID:   order.ID.Hex(),
			UserID:    user.ID.Hex(),
			Items:     order.Items,
			Total:     order.Total,
			Timestamp: order.Date,
		}
		if err := h.publisher.Publish(r.Context(), domain.TopicOrderCreated, event.OrderID, event); err != nil {
			h.logger.Error("failed to publish order created event", "error", err, "order_id", event.OrderID)
		}
	}

	h.logger.Info("order created", "order_id", order.ID.Hex(), "user_id", user.ID.Hex(), "total", order.Total.String())
	web.WriteJSON(w, h.logger, http.StatusCreated, order)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	id := r.PathValue("id")
	if id == "" {
		web.WriteError(w, h.logger, http.StatusBadRequest, "missing order id")
		return
	}

	order, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get order", "error", err, "order_id", id)
		web.WriteError(w, h.logger, http.StatusInternalServerError, "internal server error")
		return
	}

	// Another user's order is indistinguishable from a missing one.
	if order == nil || order.UserID != user.ID {
		web.WriteError(w, h.logger, http.StatusNotFound, domain.ErrOrderNotFound.Error())
		return
	}

	h.logger.Info("order retrieved", "order_id", order.ID.Hex())
	web.WriteJSON(w, h.logger, http.StatusOK, order)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	orders, err := h.repo.ListByUser(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("failed to list orders", "error", err, "user_id", user.ID.Hex())
		web.WriteError(w, h.logger, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("orders listed", "user_id", user.ID.Hex(), "count", len(orders))
	web.WriteJSON(w, h.logger, http.StatusOK, orders)
}
