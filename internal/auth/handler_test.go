package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	authpg "github.com/studymatch/backend/internal/auth/postgres"
	"github.com/studymatch/backend/internal/core/datamodel/user"
	"github.com/studymatch/backend/pkg/logger"
)

var _ = ginkgo.Describe("Auth Handler Integration", func() {
	var (
		users    *mockUserStore
		handler  *Handler
		tokenGen *JWTTokenGenerator
	)

	ginkgo.BeforeEach(func() {
		db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			Logger: gormlogger.Default.LogMode(gormlogger.Silent),
		})
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		gomega.Expect(db.AutoMigrate(&user.Session{})).To(gomega.Succeed())

		users = newMockUserStore(
			testUser(1, "alice", "correct_password", user.RoleUser, user.StatusActive),
		)
		tokenGen = NewJWTTokenGenerator("0123456789abcdef0123456789abcdef", time.Hour)
		svc := NewService(users, authpg.NewSessionRepository(db), tokenGen, nil, logger.L())
		handler = NewHandler(svc)
	})

	login := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewBufferString(body))
		req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
		req.Header.Set("User-Agent", "spec-client/1.0")
		w := httptest.NewRecorder()
		handler.Login(w, req)
		return w
	}

	ginkgo.It("logs in and returns the token envelope", func() {
		w := login(`{"username":"alice","password":"correct_password"}`)
		gomega.Expect(w.Code).To(gomega.Equal(http.StatusOK))

		var resp LoginResponse
		gomega.Expect(json.NewDecoder(w.Body).Decode(&resp)).To(gomega.Succeed())
		gomega.Expect(resp.AccessToken).NotTo(gomega.BeEmpty())
		gomega.Expect(resp.TokenType).To(gomega.Equal("bearer"))
		gomega.Expect(resp.User.Username).To(gomega.Equal("alice"))
	})

	ginkgo.It("answers 401 with a bearer challenge on bad credentials", func() {
		w := login(`{"username":"alice","password":"wrong"}`)
		gomega.Expect(w.Code).To(gomega.Equal(http.StatusUnauthorized))
		gomega.Expect(w.Header().Get("WWW-Authenticate")).To(gomega.Equal("Bearer"))
	})

	ginkgo.It("rejects malformed bodies", func() {
		w := login(`{"username":`)
		gomega.Expect(w.Code).To(gomega.Equal(http.StatusBadRequest))
	})

	ginkgo.Describe("RequireAuth", func() {
		var protected http.Handler

		ginkgo.BeforeEach(func() {
			protected = handler.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				p := PrincipalFromContext(r.Context())
				gomega.Expect(p).NotTo(gomega.BeNil())
				w.WriteHeader(http.StatusOK)
			}))
		})

		get := func(authHeader string) *httptest.ResponseRecorder {
			req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
			if authHeader != "" {
				req.Header.Set("Authorization", authHeader)
			}
			w := httptest.NewRecorder()
			protected.ServeHTTP(w, req)
			return w
		}

		ginkgo.It("admits a freshly issued token", func() {
			w := login(`{"username":"alice","password":"correct_password"}`)
			var resp LoginResponse
			gomega.Expect(json.NewDecoder(w.Body).Decode(&resp)).To(gomega.Succeed())

			gomega.Expect(get("Bearer " + resp.AccessToken).Code).To(gomega.Equal(http.StatusOK))
		})

		ginkgo.It("rejects a missing or malformed header", func() {
			gomega.Expect(get("").Code).To(gomega.Equal(http.StatusUnauthorized))
			gomega.Expect(get("Basic abc").Code).To(gomega.Equal(http.StatusUnauthorized))
		})

		ginkgo.It("rejects a token once its session is revoked", func() {
			w := login(`{"username":"alice","password":"correct_password"}`)
			var resp LoginResponse
			gomega.Expect(json.NewDecoder(w.Body).Decode(&resp)).To(gomega.Succeed())

			req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
			req.Header.Set("Authorization", "Bearer "+resp.AccessToken)
			rec := httptest.NewRecorder()
			handler.Logout(rec, req)
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))

			gomega.Expect(get("Bearer " + resp.AccessToken).Code).To(gomega.Equal(http.StatusUnauthorized))
		})

		ginkgo.It("rejects a token signed with the wrong key", func() {
			forged, _, err := NewJWTTokenGenerator("another-secret-another-secret-xx", time.Hour).
				Generate(&user.User{ID: 1, Username: "alice", Role: user.RoleUser})
			gomega.Expect(err).NotTo(gomega.HaveOccurred())

			gomega.Expect(get("Bearer " + forged).Code).To(gomega.Equal(http.StatusUnauthorized))
		})
	})
})
