package cart

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ecocart/storefront/internal/auth"
	"github.com/ecocart/storefront/internal/domain"
	"github.com/ecocart/storefront/internal/web"
)

type Store interface {
	Get(ctx context.Context, userID primitive.ObjectID) (*domain.Cart, error)
	Save(ctx context.Context, cart *domain.Cart) error
	Clear(ctx context.Context, userID primitive.ObjectID) (bool, error)
}

type ProductLookup interface {
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	GetByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*domain.Product, error)
}

type Handler struct {
	repo     Store
	products ProductLookup
	logger   *slog.Logger
}

func NewHandler(repo Store, products ProductLookup, logger *slog.Logger) *Handler {
	return &Handler{
		repo:     repo,
		products: products,
		logger:   logger,
	}
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	cart, err := h.repo.Get(r.Context(), user.ID)
	if err != nil {
		h.internalError(w, "failed to get cart", err, user.ID)
		return
	}
	if cart == nil {
		cart = &domain.Cart{UserID: user.ID, Items: []domain.CartItem{}}
	}

	h.writeCart(w, r, cart)
}

type addRequest struct {
	ProductID string `json:"productId"`
	Quantity  *int   `json:"quantity"`
}

func (h *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	var req addRequest
	if err := web.DecodeJSON(r, &req); err != nil {
		web.WriteError(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}
	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	product, err := h.products.GetByID(r.Context(), req.ProductID)
	if err != nil {
		h.internalError(w, "failed to look up product", err, user.ID)
		return
	}
	if product == nil {
		web.WriteError(w, h.logger, http.StatusNotFound, domain.ErrProductNotFound.Error())
		return
	}

	cart, err := h.repo.Get(r.Context(), user.ID)
	if err != nil {
		h.internalError(w, "failed to get cart", err, user.ID)
		return
	}
	if cart == nil {
		cart = &domain.Cart{UserID: user.ID}
	}

	if err := cart.Add(product.ID, quantity); err != nil {
		web.WriteError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.repo.Save(r.Context(), cart); err != nil {
		h.internalError(w, "failed to save cart", err, user.ID)
		return
	}

	h.logger.Info("item added to cart", "user_id", user.ID.Hex(), "product_id", product.ID.Hex(), "quantity", quantity)
	h.writeCart(w, r, cart)
}

type updateRequest struct {
	Quantity int `json:"quantity"`
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	productID, err := primitive.ObjectIDFromHex(r.PathValue("productId"))
	if err != nil {
		web.WriteError(w, h.logger, http.StatusNotFound, domain.ErrCartItemNotFound.Error())
		return
	}

	var req updateRequest
	if err := web.DecodeJSON(r, &req); err != nil {
		web.WriteError(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}

	cart, ok := h.existing(w, r, user.ID)
	if !ok {
		return
	}

	if err := cart.SetQuantity(productID, req.Quantity); err != nil {
		switch {
		case errors.Is(err, domain.ErrCartItemNotFound):
			web.WriteError(w, h.logger, http.StatusNotFound, err.Error())
		default:
			web.WriteError(w, h.logger, http.StatusBadRequest, err.Error())
		}
		return
	}
	if err := h.repo.Save(r.Context(), cart); err != nil {
		h.internalError(w, "failed to save cart", err, user.ID)
		return
	}

	h.logger.Info("cart item updated", "user_id", user.ID.Hex(), "product_id", productID.Hex(), "quantity", req.Quantity)
	h.writeCart(w, r, cart)
}

func (h *Handler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	cart, ok := h.existing(w, r, user.ID)
	if !ok {
		return
	}

	// A malformed id cannot be in the cart, so removal is a no-op.
	if productID, err := primitive.ObjectIDFromHex(r.PathValue("productId")); err == nil {
		cart.Remove(productID)
	}
	if err := h.repo.Save(r.Context(), cart); err != nil {
		h.internalError(w, "failed to save cart", err, user.ID)
		return
	}

	h.logger.Info("cart item removed", "user_id", user.ID.Hex(), "product_id", r.PathValue("productId"))
	h.writeCart(w, r, cart)
}

func (h *Handler) HandleClear(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	found, err := h.repo.Clear(r.Context(), user.ID)
	if err != nil {
		h.internalError(w, "failed to clear cart", err, user.ID)
		return
	}
	if !found {
		web.WriteError(w, h.logger, http.StatusNotFound, domain.ErrCartNotFound.Error())
		return
	}

	h.logger.Info("cart cleared", "user_id", user.ID.Hex())
	web.WriteJSON(w, h.logger, http.StatusOK, domain.CartView{Items: []domain.CartLine{}, Total: decimal.Zero})
}

type replaceRequest struct {
	Items []struct {
		ProductID string `json:"productId"`
		Quantity  int    `json:"quantity"`
	} `json:"items"`
}

func (h *Handler) HandleReplace(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	var req replaceRequest
	if err := web.DecodeJSON(r, &req); err != nil {
		web.WriteError(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}

	items := make([]domain.CartItem, 0, len(req.Items))
	for _, item := range req.Items {
		productID, err := primitive.ObjectIDFromHex(item.ProductID)
		if err != nil {
			web.WriteError(w, h.logger, http.StatusBadRequest, "invalid product id "+item.ProductID)
			return
		}
		items = append(items, domain.CartItem{ProductID: productID, Quantity: item.Quantity})
	}

	cart, err := h.repo.Get(r.Context(), user.ID)
	if err != nil {
		h.internalError(w, "failed to get cart", err, user.ID)
		return
	}
	if cart == nil {
		cart = &domain.Cart{UserID: user.ID}
	}

	if err := cart.Replace(items); err != nil {
		web.WriteError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.repo.Save(r.Context(), cart); err != nil {
		h.internalError(w, "failed to save cart", err, user.ID)
		return
	}

	h.logger.Info("cart replaced", "user_id", user.ID.Hex(), "items", len(cart.Items))
	h.writeCart(w, r, cart)
}

func (h *Handler) existing(w http.ResponseWriter, r *http.Request, userID primitive.ObjectID) (*domain.Cart, bool) {
	cart, err := h.repo.Get(r.Context(), userID)
	if err != nil {
		h.internalError(w, "failed to get cart", err, userID)
		return nil, false
	}
	if cart == nil {
		web.WriteError(w, h.logger, http.StatusNotFound, domain.ErrCartNotFound.Error())
		return nil, false
	}
	return cart, true
}

// writeCart renders the cart with current catalog entries. Lines whose
// product has left the catalog are omitted.
func (h *Handler) writeCart(w http.ResponseWriter, r *http.Request, cart *domain.Cart) {
	view, err := h.view(r.Context(), cart)
	if err != nil {
		h.internalError(w, "failed to load cart products", err, cart.UserID)
		return
	}
	web.WriteJSON(w, h.logger, http.StatusOK, view)
}

func (h *Handler) view(ctx context.Context, cart *domain.Cart) (domain.CartView, error) {
	view := domain.CartView{Items: []domain.CartLine{}, Total: decimal.Zero}
	if !cart.UpdatedAt.IsZero() {
		updated := cart.UpdatedAt
		view.UpdatedAt = &updated
	}
	if len(cart.Items) == 0 {
		return view, nil
	}

	ids := make([]primitive.ObjectID, 0, len(cart.Items))
	for _, item := range cart.Items {
		ids = append(ids, item.ProductID)
	}
	products, err := h.products.GetByIDs(ctx, ids)
	if err != nil {
		return view, err
	}

	for _, item := range cart.Items {
		product, ok := products[item.ProductID]
		if !ok {
			continue
		}
		view.Items = append(view.Items, domain.CartLine{Product: product, Quantity: item.Quantity})
		view.Total = view.Total.Add(product.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return view, nil
}

func (h *Handler) internalError(w http.ResponseWriter, msg string, err error, userID primitive.ObjectID) {
	h.logger.Error(msg, "error", err, "user_id", userID.Hex())
	web.WriteError(w, h.logger, http.StatusInternalServerError, "internal server error")
}
