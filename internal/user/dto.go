package user

import (
	"regexp"
	"strings"
	"time"

	"github.com/studymatch/backend/internal"
	"github.com/studymatch/backend/internal/core/datamodel/user"
)

var (
	usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]{3,50}$`)
	emailPattern    = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

type RegisterDTO struct {
	Username string  `json:"username"`
	Email    string  `json:"email"`
	Password string  `json:"password"`
	FullName *string `json:"full_name,omitempty"`
}

func (d *RegisterDTO) Validate() error {
	d.Username = strings.TrimSpace(d.Username)
	d.Email = strings.TrimSpace(strings.ToLower(d.Email))

	if !usernamePattern.MatchString(d.Username) {
		return internal.NewValidationError(
			"username must be 3-50 characters of letters, digits or underscore",
			internal.ErrCodeInvalidUsername)
	}
	if !emailPattern.MatchString(d.Email) {
		return internal.NewValidationError("a valid email is required", internal.ErrCodeInvalidEmail)
	}
	if len(d.Password) < 6 {
		return internal.NewValidationError("password must be at least 6 characters", internal.ErrCodeInvalidPassword)
	}
	return nil
}

type UpdateProfileDTO struct {
	FullName      *string `json:"full_name,omitempty"`
	TargetCountry *string `json:"target_country,omitempty"`
	TargetDegree  *string `json:"target_degree,omitempty"`
}

type ChangePasswordDTO struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

func (d ChangePasswordDTO) Validate() error {
	if d.OldPassword == "" {
		return internal.NewValidationError("old password is required", internal.ErrCodeInvalidPassword)
	}
	if len(d.NewPassword) < 6 {
		return internal.NewValidationError("new password must be at least 6 characters", internal.ErrCodeInvalidPassword)
	}
	return nil
}

type ForgotPasswordDTO struct {
	Email string `json:"email"`
}

type ResetPasswordDTO struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

func (d ResetPasswordDTO) Validate() error {
	if d.Token == "" {
		return internal.ErrResetTokenInvalid
	}
	if len(d.NewPassword) < 6 {
		return internal.NewValidationError("new password must be at least 6 characters", internal.ErrCodeInvalidPassword)
	}
	return nil
}

type UpdateStatusDTO struct {
	Status string `json:"status"`
}

func (d UpdateStatusDTO) Validate() error {
	switch d.Status {
	case user.StatusPending, user.StatusActive, user.StatusInactive, user.StatusSuspended:
		return nil
	}
	return internal.NewValidationError("status must be pending, active, inactive or suspended", internal.ErrCodeValidationFailed)
}

// ProfileView is the self-service profile shape.
type ProfileView struct {
	ID                  int64      `json:"id"`
	Username            string     `json:"username"`
	Email               string     `json:"email"`
	Role                string     `json:"role"`
	Status              string     `json:"status"`
	FullName            *string    `json:"full_name"`
	TargetCountry       *string    `json:"target_country"`
	TargetDegree        *string    `json:"target_degree"`
	PermissionExpiresAt *time.Time `json:"permission_expires_at"`
	CreatedAt           time.Time  `json:"created_at"`
}

func ToProfileView(u *user.User) ProfileView {
	return ProfileView{
		ID:                  u.ID,
		Username:            u.Username,
		Email:               u.Email,
		Role:                u.Role,
		Status:              u.Status,
		FullName:            u.FullName,
		TargetCountry:       u.TargetCountry,
		TargetDegree:        u.TargetDegree,
		PermissionExpiresAt: u.PermissionExpiresAt,
		CreatedAt:           u.CreatedAt,
	}
}

// AdminUserView adds the derived access state to the profile shape.
type AdminUserView struct {
	ProfileView
	EffectiveAccess string     `json:"effective_access"`
	LastLoginAt     *time.Time `json:"last_login_at"`
}

func ToAdminUserView(u *user.User, now time.Time) AdminUserView {
	return AdminUserView{
		ProfileView:     ToProfileView(u),
		EffectiveAccess: EffectiveAccess(u, now),
		LastLoginAt:     u.LastLoginAt,
	}
}
