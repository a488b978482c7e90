package user

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"

	"github.com/studymatch/backend/internal"
	"github.com/studymatch/backend/internal/auth"
	"github.com/studymatch/backend/internal/core/datamodel/user"
	"github.com/studymatch/backend/internal/transport"
	"github.com/studymatch/backend/pkg/logger"
)

// ServiceAPI is what transport needs from the user service.
type ServiceAPI interface {
	Register(ctx context.Context, dto RegisterDTO) (*user.User, error)
	Profile(ctx context.Context, userID int64) (*user.User, error)
	UpdateProfile(ctx context.Context, userID int64, dto UpdateProfileDTO) (*user.User, error)
	ChangePassword(ctx context.Context, userID int64, dto ChangePasswordDTO) error
	ForgotPassword(ctx context.Context, dto ForgotPasswordDTO) error
	ResetPassword(ctx context.Context, dto ResetPasswordDTO) error
	Stats(ctx context.Context) (*Stats, error)
	ListUsers(ctx context.Context) ([]AdminUserView, error)
	DeleteUser(ctx context.Context, actorID, targetID int64) error
	SetStatus(ctx context.Context, actorID, targetID int64, dto UpdateStatusDTO) (*user.User, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(svc ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: transport.NewBaseHandler(logger.L()),
		Service:     svc,
	}
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var dto RegisterDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteAppError(w, internal.NewValidationError("invalid request body", internal.ErrCodeValidationFailed))
		return
	}

	u, err := h.Service.Register(r.Context(), dto)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, ToProfileView(u))
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	p := auth.PrincipalFromContext(r.Context())
	if p == nil {
		h.WriteAppError(w, internal.ErrAuthFailed)
		return
	}

	u, err := h.Service.Profile(r.Context(), p.User.ID)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, ToProfileView(u))
}

func (h *Handler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	p := auth.PrincipalFromContext(r.Context())
	if p == nil {
		h.WriteAppError(w, internal.ErrAuthFailed)
		return
	}

	var dto UpdateProfileDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteAppError(w, internal.NewValidationError("invalid request body", internal.ErrCodeValidationFailed))
		return
	}

	u, err := h.Service.UpdateProfile(r.Context(), p.User.ID, dto)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, ToProfileView(u))
}

func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	p := auth.PrincipalFromContext(r.Context())
	if p == nil {
		h.WriteAppError(w, internal.ErrAuthFailed)
		return
	}

	var dto ChangePasswordDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteAppError(w, internal.NewValidationError("invalid request body", internal.ErrCodeValidationFailed))
		return
	}

	if err := h.Service.ChangePassword(r.Context(), p.User.ID, dto); err != nil {
		h.WriteAppError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]string{"message": "password updated"})
}

func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var dto ForgotPasswordDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteAppError(w, internal.NewValidationError("invalid request body", internal.ErrCodeValidationFailed))
		return
	}

	if err := h.Service.ForgotPassword(r.Context(), dto); err != nil {
		h.WriteAppError(w, err)
		return
	}

	// Always the same answer so email addresses cannot be probed.
	h.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "if that email is registered, a reset link has been sent",
	})
}

func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var dto ResetPasswordDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteAppError(w, internal.NewValidationError("invalid request body", internal.ErrCodeValidationFailed))
		return
	}

	if err := h.Service.ResetPassword(r.Context(), dto); err != nil {
		h.WriteAppError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]string{"message": "password reset"})
}

func (h *Handler) AdminStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Service.Stats(r.Context())
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, stats)
}

func (h *Handler) AdminListUsers(w http.ResponseWriter, r *http.Request) {
	views, err := h.Service.ListUsers(r.Context())
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, views)
}

func (h *Handler) AdminDeleteUser(w http.ResponseWriter, r *http.Request) {
	p := auth.PrincipalFromContext(r.Context())
	if p == nil {
		h.WriteAppError(w, internal.ErrAuthFailed)
		return
	}

	targetID, err := pathID(r)
	if err != nil {
		h.WriteAppError(w, internal.NewValidationError("invalid user id", internal.ErrCodeValidationFailed))
		return
	}

	if err := h.Service.DeleteUser(r.Context(), p.User.ID, targetID); err != nil {
		h.WriteAppError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]string{"message": "user deleted"})
}

func (h *Handler) AdminSetStatus(w http.ResponseWriter, r *http.Request) {
	p := auth.PrincipalFromContext(r.Context())
	if p == nil {
		h.WriteAppError(w, internal.ErrAuthFailed)
		return
	}

	targetID, err := pathID(r)
	if err != nil {
		h.WriteAppError(w, internal.NewValidationError("invalid user id", internal.ErrCodeValidationFailed))
		return
	}

	var dto UpdateStatusDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteAppError(w, internal.NewValidationError("invalid request body", internal.ErrCodeValidationFailed))
		return
	}

	u, err := h.Service.SetStatus(r.Context(), p.User.ID, targetID, dto)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, ToProfileView(u))
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}
