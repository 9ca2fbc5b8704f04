package users

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ecocart/storefront/internal/auth"
	"github.com/ecocart/storefront/internal/domain"
	"github.com/ecocart/storefront/internal/web"
)

type Store interface {
	Create(ctx context.Context, user *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	UpdateProfile(ctx context.Context, id primitive.ObjectID, name, phone string) error
	UpdateAddress(ctx context.Context, id primitive.ObjectID, addr domain.Address) error
}

type Handler struct {
	repo   Store
	tokens *auth.Tokens
	logger *slog.Logger
}

func NewHandler(repo Store, tokens *auth.Tokens, logger *slog.Logger) *Handler {
	return &Handler{
		repo:   repo,
		tokens: tokens,
		logger: logger,
	}
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerResponse struct {
	Message string `json:"message"`
	Success bool   `json:"success"`
}

func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := web.DecodeJSON(r, &req); err != nil {
		web.WriteError(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	if req.Name == "" || req.Email == "" || req.Password == "" || !strings.Contains(req.Email, "@") {
		web.WriteJSON(w, h.logger, http.StatusBadRequest, map[string]string{
			"error":   "INVALID_INPUT",
			"message": "please provide name, email and password",
		})
		return
	}
	if len(req.Password) > auth.MaxPasswordBytes {
		web.WriteJSON(w, h.logger, http.StatusBadRequest, map[string]string{
			"error":   "INVALID_INPUT",
			"message": "password must be at most 72 bytes",
		})
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.logger.Error("failed to hash password", "error", err)
		web.WriteError(w, h.logger, http.StatusInternalServerError, "internal server error")
		return
	}

	user := &domain.User{Name: req.Name, Email: req.Email, PasswordHash: hash}
	if err := h.repo.Create(r.Context(), user); err != nil {
		if errors.Is(err, domain.ErrEmailTaken) {
			web.WriteJSON(w, h.logger, http.StatusBadRequest, map[string]string{
				"error":   "USER_EXISTS",
				"message": domain.ErrEmailTaken.Error(),
			})
			return
		}
		h.logger.Error("failed to create user", "error", err)
		web.WriteError(w, h.logger, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("user registered", "user_id", user.ID.Hex())
	web.WriteJSON(w, h.logger, http.StatusCreated, registerResponse{Message: "user registered successfully", Success: true})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string            `json:"token"`
	User  domain.PublicUser `json:"user"`
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := web.DecodeJSON(r, &req); err != nil || req.Email == "" || req.Password == "" {
		web.WriteError(w, h.logger, http.StatusBadRequest, "please provide email and password")
		return
	}

	user, err := h.repo.GetByEmail(r.Context(), req.Email)
	if err != nil {
		h.logger.Error("failed to look up user", "error", err)
		web.WriteError(w, h.logger, http.StatusInternalServerError, "internal server error")
		return
	}

	// Unknown email and wrong password share one response.
	if user == nil {
		web.WriteError(w, h.logger, http.StatusBadRequest, domain.ErrInvalidCredentials.Error())
		return
	}
	ok, err := auth.CheckPassword(user.PasswordHash, req.Password)
	if err != nil {
		h.logger.Error("failed to check password", "error", err, "user_id", user.ID.Hex())
	}
	if !ok {
		web.WriteError(w, h.logger, http.StatusBadRequest, domain.ErrInvalidCredentials.Error())
		return
	}

	token, err := h.tokens.Issue(user.ID.Hex())
	if err != nil {
		h.logger.Error("failed to issue token", "error", err)
		web.WriteError(w, h.logger, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("user logged in", "user_id", user.ID.Hex())
	web.WriteJSON(w, h.logger, http.StatusOK, loginResponse{Token: token, User: user.Public()})
}

func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())
	web.WriteJSON(w, h.logger, http.StatusOK, map[string]domain.PublicUser{"user": user.Public()})
}

type profileResponse struct {
	domain.PublicUser
	Address *domain.Address `json:"address,omitempty"`
}

func (h *Handler) HandleGetProfile(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())
	web.WriteJSON(w, h.logger, http.StatusOK, profileResponse{PublicUser: user.Public(), Address: user.Address})
}

type profileRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

func (h *Handler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	var req profileRequest
	if err := web.DecodeJSON(r, &req); err != nil {
		web.WriteError(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		web.WriteError(w, h.logger, http.StatusBadRequest, "name is required")
		return
	}

	if err := h.repo.UpdateProfile(r.Context(), user.ID, strings.TrimSpace(req.Name), strings.TrimSpace(req.Phone)); err != nil {
		h.logger.Error("failed to update profile", "error", err, "user_id", user.ID.Hex())
		web.WriteError(w, h.logger, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("profile updated", "user_id", user.ID.Hex())
	web.WriteJSON(w, h.logger, http.StatusOK, map[string]string{"message": "profile updated successfully"})
}

func (h *Handler) HandleUpdateAddress(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	var addr domain.Address
	if err := web.DecodeJSON(r, &addr); err != nil {
		web.WriteError(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.repo.UpdateAddress(r.Context(), user.ID, addr); err != nil {
		h.logger.Error("failed to update address", "error", err, "user_id", user.ID.Hex())
		web.WriteError(w, h.logger, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("address updated", "user_id", user.ID.Hex())
	web.WriteJSON(w, h.logger, http.StatusOK, map[string]string{"message": "address updated successfully"})
}
