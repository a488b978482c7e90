package permission

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"time"

	"github.com/studymatch/backend/internal"
	"github.com/studymatch/backend/internal/core/datamodel/permission"
)

// Sentinel day counts for the numeric grant path.
const (
	DaysPermanent       = -1
	DaysImmediateExpiry = 0
)

// Errors returned by the repository so the service can map them onto the
// wire taxonomy.
var (
	ErrPendingExists   = errors.New("pending request already exists")
	ErrNotPending      = errors.New("request is not pending")
	ErrGrantNotApplied = errors.New("grant applied to no user row")
)

var customDaysPattern = regexp.MustCompile(`^(\d+)days?$`)

var presetDays = map[string]int{
	"1week":   7,
	"1month":  30,
	"3months": 90,
	"6months": 180,
	"1year":   365,
}

// ParseDurationDays converts a wire-level duration string into a day
// count. Accepted values are the fixed presets or "<N>day"/"<N>days".
func ParseDurationDays(duration string) (int, error) {
	if days, ok := presetDays[duration]; ok {
		return days, nil
	}
	if m := customDaysPattern.FindStringSubmatch(duration); m != nil {
		days, err := strconv.Atoi(m[1])
		if err != nil {
			return 0, internal.ErrInvalidDuration
		}
		return days, nil
	}
	return 0, internal.ErrInvalidDuration
}

// Grant captures a window mutation computed from a day count.
type Grant struct {
	GrantedAt time.Time
	ExpiresAt *time.Time
	Status    string
	GrantedBy int64
}

// NewGrant computes the permission window for a day count. -1 means
// permanent, 0 means revoke now, positive counts expire after that many
// days.
func NewGrant(days int, grantedBy int64, now time.Time) Grant {
	g := Grant{GrantedAt: now, GrantedBy: grantedBy, Status: "active"}
	switch {
	case days == DaysPermanent:
		g.ExpiresAt = nil
	case days == DaysImmediateExpiry:
		expires := now
		g.ExpiresAt = &expires
		g.Status = "inactive"
	default:
		expires := now.AddDate(0, 0, days)
		g.ExpiresAt = &expires
	}
	return g
}

// Review captures an admin decision on a pending request.
type Review struct {
	ReviewerID       int64
	Comments         *string
	ApprovedDuration *string
	ReviewedAt       time.Time
}

// Repository is the persistence surface for the request workflow. The
// duplicate-pending check and the approve-plus-grant compound run inside
// single transactions at this layer.
type Repository interface {
	CreatePending(ctx context.Context, req *permission.Request) error
	GetByID(ctx context.Context, id int64) (*permission.Request, error)
	ListForUser(ctx context.Context, userID int64) ([]permission.Request, error)
	ListAll(ctx context.Context, status string) ([]permission.Request, error)
	Approve(ctx context.Context, requestID int64, review Review, grant Grant) error
	Reject(ctx context.Context, requestID int64, review Review) error
	ApplyGrant(ctx context.Context, userID int64, grant Grant) (int64, error)
	Delete(ctx context.Context, id int64) error
}
