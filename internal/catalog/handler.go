package catalog

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/ecocart/storefront/internal/domain"
	"github.com/ecocart/storefront/internal/web"
)

type Store interface {
	List(ctx context.Context, f Filter) ([]domain.Product, error)
	Featured(ctx context.Context) ([]domain.Product, error)
	EcoAlternatives(ctx context.Context) ([]domain.Product, error)
	Alternatives(ctx context.Context, p *domain.Product) ([]domain.Product, error)
	GetByID(ctx context.Context, id string) (*domain.Product, error)
}

type Handler struct {
	repo   Store
	logger *slog.Logger
}

func NewHandler(repo Store, logger *slog.Logger) *Handler {
	return &Handler{
		repo:   repo,
		logger: logger,
	}
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	filter, err := ParseFilter(r.URL.Query())
	if err != nil {
		web.WriteError(w, h.logger, http.StatusBadRequest, "invalid filter: "+err.Error())
		return
	}

	products, err := h.repo.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to list products", "error", err)
		web.WriteError(w, h.logger, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("products listed", "count", len(products))
	web.WriteJSON(w, h.logger, http.StatusOK, products)
}

func (h *Handler) HandleFeatured(w http.ResponseWriter, r *http.Request) {
	products, err := h.repo.Featured(r.Context())
	if err != nil {
		h.logger.Error("failed to list featured products", "error", err)
		web.WriteError(w, h.logger, http.StatusInternalServerError, "internal server error")
		return
	}
	web.WriteJSON(w, h.logger, http.StatusOK, products)
}

func (h *Handler) HandleEcoAlternatives(w http.ResponseWriter, r *http.Request) {
	products, err := h.repo.EcoAlternatives(r.Context())
	if err != nil {
		h.logger.Error("failed to list eco alternatives", "error", err)
		web.WriteError(w, h.logger, http.StatusInternalServerError, "internal server error")
		return
	}
	web.WriteJSON(w, h.logger, http.StatusOK, products)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	product, ok := h.lookup(w, r)
	if !ok {
		return
	}

	h.logger.Info("product retrieved", "product_id", product.ID.Hex())
	web.WriteJSON(w, h.logger, http.StatusOK, product)
}

func (h *Handler) HandleAlternatives(w http.ResponseWriter, r *http.Request) {
	product, ok := h.lookup(w, r)
	if !ok {
		return
	}

	alternatives, err := h.repo.Alternatives(r.Context(), product)
	if err != nil {
		h.logger.Error("failed to list alternatives", "error", err, "product_id", product.ID.Hex())
		web.WriteError(w, h.logger, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("alternatives listed", "product_id", product.ID.Hex(), "count", len(alternatives))
	web.WriteJSON(w, h.logger, http.StatusOK, alternatives)
}

func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) (*domain.Product, bool) {
	id := r.PathValue("id")
	if id == "" {
		web.WriteError(w, h.logger, http.StatusBadRequest, "missing product id")
		return nil, false
	}

	product, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get product", "error", err, "product_id", id)
		web.WriteError(w, h.logger, http.StatusInternalServerError, "internal server error")
		return nil, false
	}
	if product == nil {
		web.WriteError(w, h.logger, http.StatusNotFound, domain.ErrProductNotFound.Error())
		return nil, false
	}
	return product, true
}
