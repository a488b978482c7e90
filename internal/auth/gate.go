package auth

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/studymatch/backend/internal"
	"github.com/studymatch/backend/internal/core/datamodel/user"
	"github.com/studymatch/backend/internal/transport"
)

// Gate holds the authorization middlewares layered on top of RequireAuth.
// They read the principal from context and answer with maximally specific
// errors, the opposite of the deliberately vague authentication layer.
type Gate struct {
	*transport.BaseHandler
	now func() time.Time
}

func NewGate(lg *slog.Logger) *Gate {
	return &Gate{
		BaseHandler: transport.NewBaseHandler(lg),
		now:         time.Now,
	}
}

// RequireActive admits admins unconditionally and regular users only while
// their grant is live. The expiry column is the source of truth; the cached
// status field is not trusted on its own.
func (g *Gate) RequireActive(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := PrincipalFromContext(r.Context())
		if p == nil {
			g.WriteAppError(w, internal.ErrAuthFailed)
			return
		}

		if p.IsAdmin() {
			next.ServeHTTP(w, r)
			return
		}

		if p.User.Status != user.StatusActive {
			g.WriteAppError(w, internal.ErrPermissionPending)
			return
		}

		if p.User.PermissionExpiresAt != nil && !p.User.PermissionExpiresAt.After(g.now()) {
			g.WriteAppError(w, internal.ErrPermissionExpired)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// RequireAdmin rejects everyone whose role is not admin.
func (g *Gate) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := PrincipalFromContext(r.Context())
		if p == nil {
			g.WriteAppError(w, internal.ErrAuthFailed)
			return
		}

		if !p.IsAdmin() {
			g.WriteAppError(w, internal.ErrAdminRequired)
			return
		}

		next.ServeHTTP(w, r)
	})
}
