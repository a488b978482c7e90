package permission

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"

	"github.com/studymatch/backend/internal"
	"github.com/studymatch/backend/internal/auth"
	permdm "github.com/studymatch/backend/internal/core/datamodel/permission"
	"github.com/studymatch/backend/internal/transport"
	"github.com/studymatch/backend/pkg/logger"
)

// ServiceAPI is what transport needs from the permission service.
type ServiceAPI interface {
	CreateRequest(ctx context.Context, userID int64, dto CreateRequestDTO) (*permdm.Request, error)
	RequestExtension(ctx context.Context, userID int64, dto CreateRequestDTO) (*permdm.Request, error)
	MyRequests(ctx context.Context, userID int64) ([]permdm.Request, error)
	ListAll(ctx context.Context, status string) ([]permdm.Request, error)
	ReviewRequest(ctx context.Context, reviewerID, requestID int64, dto ReviewDTO) (*permdm.Request, error)
	GrantDirect(ctx context.Context, adminID, targetUserID int64, dto GrantDTO) error
	DeleteRequest(ctx context.Context, adminID, requestID int64) error
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

func (h *Handler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	p := auth.PrincipalFromContext(r.Context())
	if p == nil {
		h.WriteAppError(w, internal.ErrAuthFailed)
		return
	}

	var dto CreateRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteAppError(w, internal.NewValidationError("invalid request body", internal.ErrCodeValidationFailed))
		return
	}

	req, err := h.Service.CreateRequest(r.Context(), p.User.ID, dto)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, ToRequestView(req))
}

func (h *Handler) RequestExtension(w http.ResponseWriter, r *http.Request) {
	p := auth.PrincipalFromContext(r.Context())
	if p == nil {
		h.WriteAppError(w, internal.ErrAuthFailed)
		return
	}

	var dto CreateRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteAppError(w, internal.NewValidationError("invalid request body", internal.ErrCodeValidationFailed))
		return
	}

	req, err := h.Service.RequestExtension(r.Context(), p.User.ID, dto)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, ToRequestView(req))
}

func (h *Handler) MyRequests(w http.ResponseWriter, r *http.Request) {
	p := auth.PrincipalFromContext(r.Context())
	if p == nil {
		h.WriteAppError(w, internal.ErrAuthFailed)
		return
	}

	reqs, err := h.Service.MyRequests(r.Context(), p.User.ID)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, ToRequestViews(reqs))
}

func (h *Handler) AdminListRequests(w http.ResponseWriter, r *http.Request) {
	reqs, err := h.Service.ListAll(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, ToRequestViews(reqs))
}

func (h *Handler) AdminReviewRequest(w http.ResponseWriter, r *http.Request) {
	p := auth.PrincipalFromContext(r.Context())
	if p == nil {
		h.WriteAppError(w, internal.ErrAuthFailed)
		return
	}

	requestID, err := pathID(r)
	if err != nil {
		h.WriteAppError(w, internal.NewValidationError("invalid request id", internal.ErrCodeValidationFailed))
		return
	}

	var dto ReviewDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteAppError(w, internal.NewValidationError("invalid request body", internal.ErrCodeValidationFailed))
		return
	}

	req, err := h.Service.ReviewRequest(r.Context(), p.User.ID, requestID, dto)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, ToRequestView(req))
}

func (h *Handler) AdminGrant(w http.ResponseWriter, r *http.Request) {
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

	var dto GrantDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteAppError(w, internal.NewValidationError("invalid request body", internal.ErrCodeValidationFailed))
		return
	}

	if err := h.Service.GrantDirect(r.Context(), p.User.ID, targetID, dto); err != nil {
		h.WriteAppError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]string{"message": "grant applied"})
}

func (h *Handler) AdminDeleteRequest(w http.ResponseWriter, r *http.Request) {
	p := auth.PrincipalFromContext(r.Context())
	if p == nil {
		h.WriteAppError(w, internal.ErrAuthFailed)
		return
	}

	requestID, err := pathID(r)
	if err != nil {
		h.WriteAppError(w, internal.NewValidationError("invalid request id", internal.ErrCodeValidationFailed))
		return
	}

	if err := h.Service.DeleteRequest(r.Context(), p.User.ID, requestID); err != nil {
		h.WriteAppError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]string{"message": "request deleted"})
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}
