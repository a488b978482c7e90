package auth

import (
	"strings"
	"time"

	"github.com/studymatch/backend/internal"
	"github.com/studymatch/backend/internal/core/datamodel/user"
)

// LoginDTO is the transport shape used by the HTTP handler to accept login requests.
type LoginDTO struct {
	Username string `json:"username"`
	Password string `json:"password"`

	// Client metadata filled in by the handler, never from the body.
	ClientIP  *string `json:"-"`
	UserAgent *string `json:"-"`
}

// Validate checks required fields.
func (d LoginDTO) Validate() error {
	if strings.TrimSpace(d.Username) == "" {
		return internal.NewValidationError("username is required", internal.ErrCodeInvalidUsername)
	}
	if d.Password == "" {
		return internal.NewValidationError("password is required", internal.ErrCodeInvalidPassword)
	}
	return nil
}

// LoginResult is the service-level outcome of a successful login.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      *user.User
}

type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
	User        UserView  `json:"user"`
}

// UserView is the identity slice returned alongside tokens. Profile detail
// lives on the user endpoints.
type UserView struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Status   string `json:"status"`
}

func (r *LoginResult) ToResponse() LoginResponse {
	return LoginResponse{
		AccessToken: r.Token,
		TokenType:   "bearer",
		ExpiresAt:   r.ExpiresAt,
		User: UserView{
			ID:       r.User.ID,
			Username: r.User.Username,
			Email:    r.User.Email,
			Role:     r.User.Role,
			Status:   r.User.Status,
		},
	}
}
