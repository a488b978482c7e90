package user

import "time"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

const (
	StatusPending   = "pending"
	StatusActive    = "active"
	StatusInactive  = "inactive"
	StatusSuspended = "suspended"
)

type User struct {
	ID                  int64      `gorm:"primaryKey"`
	Username            string     `gorm:"column:username;uniqueIndex;not null"`
	Email               string     `gorm:"column:email;uniqueIndex;not null"`
	PasswordHash        string     `gorm:"column:password_hash;not null"`
	Role                string     `gorm:"column:role;default:user"`
	Status              string     `gorm:"column:status;default:pending"`
	FullName            *string    `gorm:"column:full_name"`
	TargetCountry       *string    `gorm:"column:target_country"`
	TargetDegree        *string    `gorm:"column:target_degree"`
	PermissionGrantedAt *time.Time `gorm:"column:permission_granted_at"`
	PermissionExpiresAt *time.Time `gorm:"column:permission_expires_at"`
	PermissionGrantedBy *int64     `gorm:"column:permission_granted_by"`
	LastLoginAt         *time.Time `gorm:"column:last_login_at"`
	CreatedAt           time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (User) TableName() string {
	return "users"
}

type Session struct {
	ID               int64     `gorm:"primaryKey"`
	UserID           int64     `gorm:"column:user_id;not null;index"`
	TokenFingerprint string    `gorm:"column:token_fingerprint;uniqueIndex;not null"`
	ExpiresAt        time.Time `gorm:"column:expires_at;not null"`
	IPAddress        *string   `gorm:"column:ip_address"`
	UserAgent        *string   `gorm:"column:user_agent"`
	CreatedAt        time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (Session) TableName() string {
	return "user_sessions"
}

type PasswordResetToken struct {
	ID        int64      `gorm:"primaryKey"`
	UserID    int64      `gorm:"column:user_id;not null;index"`
	TokenHash string     `gorm:"column:token_hash;uniqueIndex;not null"`
	ExpiresAt time.Time  `gorm:"column:expires_at;not null"`
	UsedAt    *time.Time `gorm:"column:used_at"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
}

func (PasswordResetToken) TableName() string {
	return "password_reset_tokens"
}
