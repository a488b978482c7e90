package audit

import (
	"context"
	"log/slog"

	"github.com/studymatch/backend/internal/core/datamodel/audit"
	"github.com/studymatch/backend/internal/core/events"
)

// EventType is the single bus topic the audit recorder listens on.
const EventType = "audit.record"

// Action tags written to the audit trail.
const (
	ActionRegister       = "user_register"
	ActionLogin          = "user_login"
	ActionLoginFailed    = "user_login_failed"
	ActionLogout         = "user_logout"
	ActionPasswordChange = "user_password_change"
	ActionPasswordReset  = "user_password_reset"
	ActionProfileUpdate  = "user_profile_update"
	ActionUserDelete     = "user_delete"
	ActionStatusChange   = "user_status_change"
	ActionRequestSubmit  = "permission_request_create"
	ActionRequestReview  = "permission_request_review"
	ActionRequestDelete  = "permission_request_delete"
	ActionGrant          = "permission_grant"
)

// Entity type tags for the optional entity reference on a record.
const (
	EntityUser    = "user"
	EntityRequest = "permission_request"
)

// Record is the payload carried on audit events.
type Record struct {
	UserID     *int64
	Action     string
	EntityType *string
	EntityID   *int64
	Details    string
	IPAddress  *string
}

// NewEvent wraps a record for publication on the event bus.
func NewEvent(rec Record) events.Event {
	return events.NewBaseEvent(EventType, map[string]interface{}{
		"record": rec,
	})
}

// Store persists audit log rows.
type Store interface {
	Append(ctx context.Context, log *audit.Log) error
	List(ctx context.Context, limit int) ([]audit.Log, error)
}

// Recorder subscribes to the bus and appends audit rows. Persistence is
// best effort: a failed append is logged and the triggering operation is
// never affected.
type Recorder struct {
	store  Store
	logger *slog.Logger
}

func NewRecorder(store Store, logger *slog.Logger) *Recorder {
	return &Recorder{store: store, logger: logger}
}

// Register wires the recorder onto the bus.
func (r *Recorder) Register(bus *events.EventBus) {
	bus.Subscribe(EventType, r.handle)
}

func (r *Recorder) handle(ctx context.Context, event events.Event) error {
	data, ok := event.Payload().(map[string]interface{})
	if !ok {
		r.logger.Warn("audit event with unexpected payload", "event_id", event.EventID())
		return nil
	}
	rec, ok := data["record"].(Record)
	if !ok {
		r.logger.Warn("audit event missing record", "event_id", event.EventID())
		return nil
	}

	entry := &audit.Log{
		UserID:     rec.UserID,
		Action:     rec.Action,
		EntityType: rec.EntityType,
		EntityID:   rec.EntityID,
		Details:    rec.Details,
		IPAddress:  rec.IPAddress,
	}
	if err := r.store.Append(ctx, entry); err != nil {
		r.logger.Error("failed to append audit log", "action", rec.Action, "error", err)
	}
	return nil
}
