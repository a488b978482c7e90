package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	"github.com/studymatch/backend/internal"
	"github.com/studymatch/backend/internal/core/datamodel/user"
	"github.com/studymatch/backend/pkg/logger"
)

var _ = ginkgo.Describe("Auth Gate", func() {
	var (
		gate *Gate
		next http.Handler
	)

	okHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	perform := func(mw func(http.Handler) http.Handler, p *Principal) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		if p != nil {
			req = req.WithContext(context.WithValue(req.Context(), ContextPrincipalKey, p))
		}
		rec := httptest.NewRecorder()
		mw(next).ServeHTTP(rec, req)
		return rec
	}

	errorCode := func(rec *httptest.ResponseRecorder) internal.ErrorCode {
		var body internal.Response
		gomega.Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(gomega.Succeed())
		return body.Error.Code
	}

	ginkgo.BeforeEach(func() {
		gate = NewGate(logger.L())
		next = okHandler
	})

	ginkgo.Describe("RequireActive", func() {
		ginkgo.It("rejects requests with no principal", func() {
			rec := perform(gate.RequireActive, nil)
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusUnauthorized))
		})

		ginkgo.It("admits admins regardless of status or expiry", func() {
			lapsed := time.Now().Add(-time.Hour)
			rec := perform(gate.RequireActive, &Principal{User: &user.User{
				ID:                  1,
				Role:                user.RoleAdmin,
				Status:              user.StatusPending,
				PermissionExpiresAt: &lapsed,
			}})
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
		})

		ginkgo.It("rejects non-active users as pending", func() {
			rec := perform(gate.RequireActive, &Principal{User: &user.User{
				ID:     2,
				Role:   user.RoleUser,
				Status: user.StatusPending,
			}})
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusForbidden))
			gomega.Expect(errorCode(rec)).To(gomega.Equal(internal.ErrCodePermissionPending))
		})

		ginkgo.It("admits active users with no expiry", func() {
			rec := perform(gate.RequireActive, &Principal{User: &user.User{
				ID:     3,
				Role:   user.RoleUser,
				Status: user.StatusActive,
			}})
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
		})

		ginkgo.It("admits an active user one second before expiry", func() {
			base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
			gate.now = func() time.Time { return base }
			expires := base.Add(time.Second)

			rec := perform(gate.RequireActive, &Principal{User: &user.User{
				ID:                  4,
				Role:                user.RoleUser,
				Status:              user.StatusActive,
				PermissionExpiresAt: &expires,
			}})
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
		})

		ginkgo.It("rejects an active user one second after expiry", func() {
			base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
			gate.now = func() time.Time { return base }
			expires := base.Add(-time.Second)

			rec := perform(gate.RequireActive, &Principal{User: &user.User{
				ID:                  5,
				Role:                user.RoleUser,
				Status:              user.StatusActive,
				PermissionExpiresAt: &expires,
			}})
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusForbidden))
			gomega.Expect(errorCode(rec)).To(gomega.Equal(internal.ErrCodePermissionExpired))
		})

		ginkgo.It("rejects exactly at the expiry instant", func() {
			base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
			gate.now = func() time.Time { return base }
			expires := base

			rec := perform(gate.RequireActive, &Principal{User: &user.User{
				ID:                  6,
				Role:                user.RoleUser,
				Status:              user.StatusActive,
				PermissionExpiresAt: &expires,
			}})
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusForbidden))
		})
	})

	ginkgo.Describe("RequireAdmin", func() {
		ginkgo.It("rejects requests with no principal", func() {
			rec := perform(gate.RequireAdmin, nil)
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusUnauthorized))
		})

		ginkgo.It("rejects regular users", func() {
			rec := perform(gate.RequireAdmin, &Principal{User: &user.User{
				ID:     7,
				Role:   user.RoleUser,
				Status: user.StatusActive,
			}})
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusForbidden))
			gomega.Expect(errorCode(rec)).To(gomega.Equal(internal.ErrCodeAdminRequired))
		})

		ginkgo.It("admits admins", func() {
			rec := perform(gate.RequireAdmin, &Principal{User: &user.User{
				ID:   8,
				Role: user.RoleAdmin,
			}})
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
		})
	})
})
