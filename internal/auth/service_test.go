package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"

	"github.com/studymatch/backend/internal"
	"github.com/studymatch/backend/internal/core/datamodel/user"
	"github.com/studymatch/backend/pkg/logger"
)

func TestAuth(t *testing.T) {
	gomega.RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "Auth Module Suite")
}

type mockUserStore struct {
	byUsername map[string]*user.User
	byID       map[int64]*user.User
	lastLogin  map[int64]time.Time
}

func newMockUserStore(users ...*user.User) *mockUserStore {
	s := &mockUserStore{
		byUsername: map[string]*user.User{},
		byID:       map[int64]*user.User{},
		lastLogin:  map[int64]time.Time{},
	}
	for _, u := range users {
		s.byUsername[u.Username] = u
		s.byID[u.ID] = u
	}
	return s
}

func (m *mockUserStore) GetByUsername(_ context.Context, username string) (*user.User, error) {
	if u, ok := m.byUsername[username]; ok {
		return u, nil
	}
	return nil, errors.New("user not found")
}

func (m *mockUserStore) GetByID(_ context.Context, id int64) (*user.User, error) {
	if u, ok := m.byID[id]; ok {
		return u, nil
	}
	return nil, errors.New("user not found")
}

func (m *mockUserStore) UpdateLastLogin(_ context.Context, id int64, at time.Time) error {
	m.lastLogin[id] = at
	return nil
}

type mockSessionStore struct {
	sessions   map[string]*user.Session
	failCreate bool
	nextID     int64
}

func newMockSessionStore() *mockSessionStore {
	return &mockSessionStore{sessions: map[string]*user.Session{}}
}

func (m *mockSessionStore) Create(_ context.Context, session *user.Session) error {
	if m.failCreate {
		return errors.New("insert failed")
	}
	m.nextID++
	session.ID = m.nextID
	m.sessions[session.TokenFingerprint] = session
	return nil
}

func (m *mockSessionStore) GetByFingerprint(_ context.Context, fingerprint string) (*user.Session, error) {
	if s, ok := m.sessions[fingerprint]; ok {
		return s, nil
	}
	return nil, errors.New("session not found")
}

func (m *mockSessionStore) DeleteByFingerprint(_ context.Context, fingerprint string) error {
	delete(m.sessions, fingerprint)
	return nil
}

func (m *mockSessionStore) DeleteForUser(_ context.Context, userID int64) (int64, error) {
	var n int64
	for fp, s := range m.sessions {
		if s.UserID == userID {
			delete(m.sessions, fp)
			n++
		}
	}
	return n, nil
}

func (m *mockSessionStore) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	var n int64
	for fp, s := range m.sessions {
		if !s.ExpiresAt.After(now) {
			delete(m.sessions, fp)
			n++
		}
	}
	return n, nil
}

func testUser(id int64, username, password, role, status string) *user.User {
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	return &user.User{
		ID:           id,
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: string(hash),
		Role:         role,
		Status:       status,
	}
}

var _ = ginkgo.Describe("Auth Service", func() {
	var (
		users    *mockUserStore
		sessions *mockSessionStore
		tokenGen *JWTTokenGenerator
		svc      *Service
		ctx      context.Context
	)

	const secret = "0123456789abcdef0123456789abcdef"

	ginkgo.BeforeEach(func() {
		users = newMockUserStore(
			testUser(1, "alice", "correct_password", user.RoleUser, user.StatusActive),
			testUser(2, "bob", "correct_password", user.RoleUser, user.StatusPending),
			testUser(3, "carol", "correct_password", user.RoleUser, user.StatusSuspended),
			testUser(4, "dave", "correct_password", user.RoleUser, user.StatusInactive),
		)
		sessions = newMockSessionStore()
		tokenGen = NewJWTTokenGenerator(secret, 24*time.Hour)
		svc = NewService(users, sessions, tokenGen, nil, logger.L())
		ctx = context.Background()
	})

	ginkgo.Describe("Login", func() {
		ginkgo.It("issues a token and stores a session keyed by fingerprint", func() {
			result, err := svc.Login(ctx, LoginDTO{Username: "alice", Password: "correct_password"})
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(result.Token).NotTo(gomega.BeEmpty())

			session, err := sessions.GetByFingerprint(ctx, Fingerprint(result.Token))
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(session.UserID).To(gomega.Equal(int64(1)))
			gomega.Expect(session.TokenFingerprint).NotTo(gomega.Equal(result.Token))
		})

		ginkgo.It("records the login time", func() {
			_, err := svc.Login(ctx, LoginDTO{Username: "alice", Password: "correct_password"})
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(users.lastLogin).To(gomega.HaveKey(int64(1)))
		})

		ginkgo.It("rejects an unknown username and a wrong password identically", func() {
			_, err1 := svc.Login(ctx, LoginDTO{Username: "nobody", Password: "whatever"})
			_, err2 := svc.Login(ctx, LoginDTO{Username: "alice", Password: "wrong"})
			gomega.Expect(err1).To(gomega.Equal(internal.ErrInvalidCredentials))
			gomega.Expect(err2).To(gomega.Equal(internal.ErrInvalidCredentials))
		})

		ginkgo.It("allows pending users to log in", func() {
			result, err := svc.Login(ctx, LoginDTO{Username: "bob", Password: "correct_password"})
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(result.User.Status).To(gomega.Equal(user.StatusPending))
		})

		ginkgo.It("rejects suspended accounts with a specific error", func() {
			_, err := svc.Login(ctx, LoginDTO{Username: "carol", Password: "correct_password"})
			gomega.Expect(err).To(gomega.Equal(internal.ErrAccountSuspended))
		})

		ginkgo.It("rejects inactive accounts with the re-apply error", func() {
			_, err := svc.Login(ctx, LoginDTO{Username: "dave", Password: "correct_password"})
			gomega.Expect(err).To(gomega.Equal(internal.ErrAccountInactive))
		})

		ginkgo.It("fails the login when the session cannot be persisted", func() {
			sessions.failCreate = true
			_, err := svc.Login(ctx, LoginDTO{Username: "alice", Password: "correct_password"})
			gomega.Expect(err).To(gomega.HaveOccurred())
			gomega.Expect(sessions.sessions).To(gomega.BeEmpty())
		})

		ginkgo.It("creates a distinct session per login", func() {
			r1, err := svc.Login(ctx, LoginDTO{Username: "alice", Password: "correct_password"})
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			r2, err := svc.Login(ctx, LoginDTO{Username: "alice", Password: "correct_password"})
			gomega.Expect(err).NotTo(gomega.HaveOccurred())

			gomega.Expect(len(sessions.sessions)).To(gomega.Equal(2))

			// Revoking one leaves the other alive.
			gomega.Expect(svc.Logout(ctx, r1.Token)).To(gomega.Succeed())
			_, err = svc.Resolve(ctx, r2.Token)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
		})
	})

	ginkgo.Describe("Logout", func() {
		ginkgo.It("is idempotent for unknown tokens", func() {
			gomega.Expect(svc.Logout(ctx, "never-issued")).To(gomega.Succeed())
		})
	})

	ginkgo.Describe("Resolve", func() {
		ginkgo.It("returns the principal for a live session", func() {
			result, err := svc.Login(ctx, LoginDTO{Username: "alice", Password: "correct_password"})
			gomega.Expect(err).NotTo(gomega.HaveOccurred())

			principal, err := svc.Resolve(ctx, result.Token)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(principal.User.ID).To(gomega.Equal(int64(1)))
			gomega.Expect(principal.TokenFingerprint).To(gomega.Equal(Fingerprint(result.Token)))
		})

		ginkgo.It("rejects a logged-out token even though its signature still verifies", func() {
			result, err := svc.Login(ctx, LoginDTO{Username: "alice", Password: "correct_password"})
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(svc.Logout(ctx, result.Token)).To(gomega.Succeed())

			_, verifyErr := tokenGen.Validate(result.Token)
			gomega.Expect(verifyErr).NotTo(gomega.HaveOccurred())

			_, err = svc.Resolve(ctx, result.Token)
			gomega.Expect(err).To(gomega.Equal(internal.ErrAuthFailed))
		})

		ginkgo.It("rejects garbage tokens", func() {
			_, err := svc.Resolve(ctx, "not-a-token")
			gomega.Expect(err).To(gomega.Equal(internal.ErrAuthFailed))
		})

		ginkgo.It("rejects a valid token whose session row has lapsed", func() {
			result, err := svc.Login(ctx, LoginDTO{Username: "alice", Password: "correct_password"})
			gomega.Expect(err).NotTo(gomega.HaveOccurred())

			sessions.sessions[Fingerprint(result.Token)].ExpiresAt = time.Now().Add(-time.Second)

			_, err = svc.Resolve(ctx, result.Token)
			gomega.Expect(err).To(gomega.Equal(internal.ErrAuthFailed))
		})

		ginkgo.It("rejects users whose status bars login", func() {
			result, err := svc.Login(ctx, LoginDTO{Username: "alice", Password: "correct_password"})
			gomega.Expect(err).NotTo(gomega.HaveOccurred())

			users.byID[1].Status = user.StatusSuspended
			_, err = svc.Resolve(ctx, result.Token)
			gomega.Expect(err).To(gomega.Equal(internal.ErrAuthFailed))
		})
	})

	ginkgo.Describe("Token generator", func() {
		ginkgo.It("embeds identity claims", func() {
			u := users.byID[1]
			token, _, err := tokenGen.Generate(u)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())

			claims, err := tokenGen.Validate(token)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(claims.UserID).To(gomega.Equal(int64(1)))
			gomega.Expect(claims.Username).To(gomega.Equal("alice"))
			gomega.Expect(claims.Role).To(gomega.Equal(user.RoleUser))
		})

		ginkgo.It("rejects a token after its ttl has passed", func() {
			pastGen := NewJWTTokenGenerator(secret, time.Hour)
			pastGen.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

			token, _, err := pastGen.Generate(users.byID[1])
			gomega.Expect(err).NotTo(gomega.HaveOccurred())

			_, err = tokenGen.Validate(token)
			gomega.Expect(err).To(gomega.HaveOccurred())
		})

		ginkgo.It("accepts a token just before its ttl", func() {
			shortGen := NewJWTTokenGenerator(secret, 2*time.Second)
			token, _, err := shortGen.Generate(users.byID[1])
			gomega.Expect(err).NotTo(gomega.HaveOccurred())

			_, err = shortGen.Validate(token)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
		})

		ginkgo.It("rejects a token signed with a different key", func() {
			otherGen := NewJWTTokenGenerator("another-secret-another-secret-xx", time.Hour)
			token, _, err := otherGen.Generate(users.byID[1])
			gomega.Expect(err).NotTo(gomega.HaveOccurred())

			_, err = tokenGen.Validate(token)
			gomega.Expect(err).To(gomega.HaveOccurred())
		})
	})

	ginkgo.Describe("Fingerprint", func() {
		ginkgo.It("is deterministic and never the raw token", func() {
			gomega.Expect(Fingerprint("abc")).To(gomega.Equal(Fingerprint("abc")))
			gomega.Expect(Fingerprint("abc")).NotTo(gomega.Equal("abc"))
			gomega.Expect(Fingerprint("abc")).To(gomega.HaveLen(64))
		})
	})
})
