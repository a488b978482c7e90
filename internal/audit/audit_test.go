package audit

import (
	"context"
	"errors"
	"testing"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	auditdm "github.com/studymatch/backend/internal/core/datamodel/audit"
	"github.com/studymatch/backend/internal/core/events"
	"github.com/studymatch/backend/pkg/logger"
)

func TestAudit(t *testing.T) {
	gomega.RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "Audit Module Suite")
}

type mockStore struct {
	entries    []auditdm.Log
	failAppend bool
	appended   chan error
}

func (m *mockStore) Append(ctx context.Context, log *auditdm.Log) error {
	if m.failAppend {
		return errors.New("insert failed")
	}
	m.entries = append(m.entries, *log)
	if m.appended != nil {
		m.appended <- ctx.Err()
	}
	return nil
}

func (m *mockStore) List(_ context.Context, limit int) ([]auditdm.Log, error) {
	if limit > len(m.entries) {
		limit = len(m.entries)
	}
	return m.entries[:limit], nil
}

var _ = ginkgo.Describe("Audit Recorder", func() {
	var (
		store *mockStore
		bus   *events.EventBus
		ctx   context.Context
	)

	ginkgo.BeforeEach(func() {
		store = &mockStore{}
		bus = events.NewEventBus(logger.L())
		NewRecorder(store, logger.L()).Register(bus)
		ctx = context.Background()
	})

	ginkgo.It("appends a row for a published record", func() {
		userID := int64(7)
		entity := EntityUser
		entityID := int64(3)
		ip := "203.0.113.9"

		err := bus.PublishSync(ctx, NewEvent(Record{
			UserID:     &userID,
			Action:     ActionStatusChange,
			EntityType: &entity,
			EntityID:   &entityID,
			Details:    "status suspended",
			IPAddress:  &ip,
		}))
		gomega.Expect(err).NotTo(gomega.HaveOccurred())

		gomega.Expect(store.entries).To(gomega.HaveLen(1))
		entry := store.entries[0]
		gomega.Expect(*entry.UserID).To(gomega.Equal(int64(7)))
		gomega.Expect(entry.Action).To(gomega.Equal(ActionStatusChange))
		gomega.Expect(*entry.EntityType).To(gomega.Equal(EntityUser))
		gomega.Expect(*entry.EntityID).To(gomega.Equal(int64(3)))
		gomega.Expect(entry.Details).To(gomega.Equal("status suspended"))
		gomega.Expect(*entry.IPAddress).To(gomega.Equal("203.0.113.9"))
	})

	ginkgo.It("keeps a nil actor for anonymous records", func() {
		err := bus.PublishSync(ctx, NewEvent(Record{
			Action:  ActionLoginFailed,
			Details: "unknown username ghost",
		}))
		gomega.Expect(err).NotTo(gomega.HaveOccurred())

		gomega.Expect(store.entries).To(gomega.HaveLen(1))
		gomega.Expect(store.entries[0].UserID).To(gomega.BeNil())
	})

	ginkgo.It("swallows append failures", func() {
		store.failAppend = true
		err := bus.PublishSync(ctx, NewEvent(Record{Action: ActionLogin}))
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		gomega.Expect(store.entries).To(gomega.BeEmpty())
	})

	ginkgo.It("outlives the publishing request context", func() {
		store.appended = make(chan error, 1)
		reqCtx, cancel := context.WithCancel(ctx)

		err := bus.Publish(reqCtx, NewEvent(Record{
			Action:  ActionLogin,
			Details: "login from test",
		}))
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		cancel()

		gomega.Eventually(store.appended).Should(gomega.Receive(gomega.BeNil()))
		gomega.Expect(store.entries).To(gomega.HaveLen(1))
		gomega.Expect(store.entries[0].Action).To(gomega.Equal(ActionLogin))
	})

	ginkgo.It("ignores events with a foreign payload", func() {
		err := bus.PublishSync(ctx, events.NewBaseEvent(EventType, map[string]interface{}{"other": 1}))
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		gomega.Expect(store.entries).To(gomega.BeEmpty())
	})
})
