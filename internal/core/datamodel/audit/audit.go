package audit

import "time"

// Log is an append-only audit row. UserID is nulled rather than cascaded
// when the referenced account is deleted, so the trail outlives the user.
type Log struct {
	ID         int64     `gorm:"primaryKey"`
	UserID     *int64    `gorm:"column:user_id;index"`
	Action     string    `gorm:"column:action;not null;index"`
	EntityType *string   `gorm:"column:entity_type"`
	EntityID   *int64    `gorm:"column:entity_id"`
	Details    string    `gorm:"column:details"`
	IPAddress  *string   `gorm:"column:ip_address"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (Log) TableName() string {
	return "audit_logs"
}
