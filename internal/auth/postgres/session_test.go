package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	authpg "github.com/studymatch/backend/internal/auth/postgres"
	"github.com/studymatch/backend/internal/core/datamodel/user"
)

func TestSessionRepository(t *testing.T) {
	gomega.RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "Session Repository Suite")
}

var _ = ginkgo.Describe("Session Repository", func() {
	var (
		db   *gorm.DB
		repo *authpg.SessionRepository
		ctx  context.Context
	)

	ginkgo.BeforeEach(func() {
		var err error
		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		gomega.Expect(err).NotTo(gomega.HaveOccurred())

		err = db.AutoMigrate(&user.Session{})
		gomega.Expect(err).NotTo(gomega.HaveOccurred())

		repo = authpg.NewSessionRepository(db)
		ctx = context.Background()
	})

	newSession := func(userID int64, fingerprint string, expiresAt time.Time) *user.Session {
		return &user.Session{
			UserID:           userID,
			TokenFingerprint: fingerprint,
			ExpiresAt:        expiresAt,
		}
	}

	ginkgo.It("stores and retrieves a session by fingerprint", func() {
		session := newSession(1, "fp-alpha", time.Now().Add(time.Hour))
		gomega.Expect(repo.Create(ctx, session)).To(gomega.Succeed())
		gomega.Expect(session.ID).NotTo(gomega.BeZero())

		found, err := repo.GetByFingerprint(ctx, "fp-alpha")
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		gomega.Expect(found.UserID).To(gomega.Equal(int64(1)))
	})

	ginkgo.It("returns an error for unknown fingerprints", func() {
		_, err := repo.GetByFingerprint(ctx, "fp-missing")
		gomega.Expect(err).To(gomega.HaveOccurred())
	})

	ginkgo.It("rejects two sessions with the same fingerprint", func() {
		gomega.Expect(repo.Create(ctx, newSession(1, "fp-dup", time.Now().Add(time.Hour)))).To(gomega.Succeed())
		err := repo.Create(ctx, newSession(2, "fp-dup", time.Now().Add(time.Hour)))
		gomega.Expect(err).To(gomega.HaveOccurred())
	})

	ginkgo.It("deletes by fingerprint without touching other sessions", func() {
		gomega.Expect(repo.Create(ctx, newSession(1, "fp-one", time.Now().Add(time.Hour)))).To(gomega.Succeed())
		gomega.Expect(repo.Create(ctx, newSession(1, "fp-two", time.Now().Add(time.Hour)))).To(gomega.Succeed())

		gomega.Expect(repo.DeleteByFingerprint(ctx, "fp-one")).To(gomega.Succeed())

		_, err := repo.GetByFingerprint(ctx, "fp-one")
		gomega.Expect(err).To(gomega.HaveOccurred())

		_, err = repo.GetByFingerprint(ctx, "fp-two")
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
	})

	ginkgo.It("treats deleting an unknown fingerprint as success", func() {
		gomega.Expect(repo.DeleteByFingerprint(ctx, "fp-never")).To(gomega.Succeed())
	})

	ginkgo.It("drops all sessions of one user and reports the count", func() {
		gomega.Expect(repo.Create(ctx, newSession(1, "fp-a", time.Now().Add(time.Hour)))).To(gomega.Succeed())
		gomega.Expect(repo.Create(ctx, newSession(1, "fp-b", time.Now().Add(time.Hour)))).To(gomega.Succeed())
		gomega.Expect(repo.Create(ctx, newSession(2, "fp-c", time.Now().Add(time.Hour)))).To(gomega.Succeed())

		n, err := repo.DeleteForUser(ctx, 1)
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		gomega.Expect(n).To(gomega.Equal(int64(2)))

		_, err = repo.GetByFingerprint(ctx, "fp-c")
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
	})

	ginkgo.It("sweeps only sessions at or past their expiry", func() {
		now := time.Now()
		gomega.Expect(repo.Create(ctx, newSession(1, "fp-old", now.Add(-time.Minute)))).To(gomega.Succeed())
		gomega.Expect(repo.Create(ctx, newSession(1, "fp-edge", now))).To(gomega.Succeed())
		gomega.Expect(repo.Create(ctx, newSession(1, "fp-live", now.Add(time.Hour)))).To(gomega.Succeed())

		n, err := repo.DeleteExpired(ctx, now)
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		gomega.Expect(n).To(gomega.Equal(int64(2)))

		_, err = repo.GetByFingerprint(ctx, "fp-live")
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
	})
})
