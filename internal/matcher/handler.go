package matcher

import (
	"encoding/json"
	"net/http"

	"github.com/studymatch/backend/internal"
	"github.com/studymatch/backend/internal/auth"
	"github.com/studymatch/backend/internal/transport"
	"github.com/studymatch/backend/pkg/logger"
)

// Handler exposes the one scoring route. It sits behind the active-access
// gate, so only users with a live grant can spend scorer calls.
type Handler struct {
	*transport.BaseHandler
	scorer Scorer
}

func NewHandler(scorer Scorer) *Handler {
	return &Handler{
		BaseHandler: transport.NewBaseHandler(logger.L()),
		scorer:      scorer,
	}
}

func (h *Handler) Match(w http.ResponseWriter, r *http.Request) {
	p := auth.PrincipalFromContext(r.Context())
	if p == nil {
		h.WriteAppError(w, internal.ErrAuthFailed)
		return
	}

	var profile CandidateProfile
	if err := json.NewDecoder(r.Body).Decode(&profile); err != nil {
		h.WriteAppError(w, internal.NewValidationError("invalid request body", internal.ErrCodeValidationFailed))
		return
	}

	// Fall back to the stored targets when the body leaves them out.
	if profile.TargetCountry == "" && p.User.TargetCountry != nil {
		profile.TargetCountry = *p.User.TargetCountry
	}
	if profile.TargetDegree == "" && p.User.TargetDegree != nil {
		profile.TargetDegree = *p.User.TargetDegree
	}

	result, err := h.scorer.Match(r.Context(), profile)
	if err != nil {
		h.WriteAppError(w, internal.NewInternalError("matching service unavailable", err))
		return
	}

	h.WriteJSON(w, http.StatusOK, result)
}
