package permission

import "time"

const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// ExtensionReason marks a request created through the extension flow so it
// can be told apart from a first-time application.
const ExtensionReason = "permission_extension"

type Request struct {
	ID                int64      `gorm:"primaryKey"`
	UserID            int64      `gorm:"column:user_id;not null;index"`
	Reason            string     `gorm:"column:reason"`
	RequestedDuration string     `gorm:"column:requested_duration"`
	ExtraInfo         *string    `gorm:"column:extra_info"`
	Status            string     `gorm:"column:status;default:pending;index"`
	ReviewerID        *int64     `gorm:"column:reviewer_id"`
	ReviewerComments  *string    `gorm:"column:reviewer_comments"`
	ApprovedDuration  *string    `gorm:"column:approved_duration"`
	ReviewedAt        *time.Time `gorm:"column:reviewed_at"`
	CreatedAt         time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (Request) TableName() string {
	return "permission_requests"
}

// IsExtension reports whether the request came through the extension flow.
func (r *Request) IsExtension() bool {
	return len(r.Reason) >= len(ExtensionReason) && r.Reason[:len(ExtensionReason)] == ExtensionReason
}
