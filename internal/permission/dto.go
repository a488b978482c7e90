package permission

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/studymatch/backend/internal"
	"github.com/studymatch/backend/internal/core/datamodel/permission"
)

type CreateRequestDTO struct {
	Reason    string  `json:"reason"`
	Duration  string  `json:"duration"`
	ExtraInfo *string `json:"extra_info,omitempty"`
}

// Validate checks the optional reason and the requested duration. An empty
// reason is allowed; a supplied one must carry at least 10 real characters.
func (d *CreateRequestDTO) Validate() error {
	d.Reason = strings.TrimSpace(d.Reason)
	if d.Reason != "" && utf8.RuneCountInString(d.Reason) < 10 {
		return internal.NewValidationError("reason must be at least 10 characters", internal.ErrCodeReasonTooShort)
	}
	if d.Duration != "" {
		if _, err := ParseDurationDays(d.Duration); err != nil {
			return err
		}
	}
	return nil
}

type ReviewDTO struct {
	Approved         bool    `json:"approved"`
	Comments         *string `json:"comments,omitempty"`
	ApprovedDuration *string `json:"approved_duration,omitempty"`
}

type GrantDTO struct {
	Duration *string `json:"duration,omitempty"`
	Days     *int    `json:"days,omitempty"`
}

// ResolveDays turns the grant body into a day count. The numeric path
// admits the -1 and 0 sentinels; the string path only the vocabulary.
func (d GrantDTO) ResolveDays() (int, error) {
	if d.Days != nil {
		if *d.Days < DaysPermanent {
			return 0, internal.ErrInvalidDuration
		}
		return *d.Days, nil
	}
	if d.Duration != nil {
		return ParseDurationDays(*d.Duration)
	}
	return 0, internal.ErrInvalidDuration
}

type RequestView struct {
	ID                int64      `json:"id"`
	UserID            int64      `json:"user_id"`
	Reason            string     `json:"reason"`
	RequestedDuration string     `json:"requested_duration"`
	ExtraInfo         *string    `json:"extra_info"`
	Status            string     `json:"status"`
	IsExtension       bool       `json:"is_extension"`
	ReviewerID        *int64     `json:"reviewer_id"`
	ReviewerComments  *string    `json:"reviewer_comments"`
	ApprovedDuration  *string    `json:"approved_duration"`
	ReviewedAt        *time.Time `json:"reviewed_at"`
	CreatedAt         time.Time  `json:"created_at"`
}

func ToRequestView(req *permission.Request) RequestView {
	return RequestView{
		ID:                req.ID,
		UserID:            req.UserID,
		Reason:            req.Reason,
		RequestedDuration: req.RequestedDuration,
		ExtraInfo:         req.ExtraInfo,
		Status:            req.Status,
		IsExtension:       req.IsExtension(),
		ReviewerID:        req.ReviewerID,
		ReviewerComments:  req.ReviewerComments,
		ApprovedDuration:  req.ApprovedDuration,
		ReviewedAt:        req.ReviewedAt,
		CreatedAt:         req.CreatedAt,
	}
}

func ToRequestViews(reqs []permission.Request) []RequestView {
	views := make([]RequestView, 0, len(reqs))
	for i := range reqs {
		views = append(views, ToRequestView(&reqs[i]))
	}
	return views
}
