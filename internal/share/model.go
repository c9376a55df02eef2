package share

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Link is a shareable link: private content published under an opaque token.
type Link struct {
	ID           uuid.UUID
	OwnerID      uuid.UUID
	Token        string
	Title        string
	Description  string
	Content      string
	ContentType  string
	ExpiresAt    *time.Time
	MaxViews     *int32 // nil means unlimited
	CurrentViews int32
	PasswordHash string // empty means no password
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasPassword reports whether reads must supply a password.
func (l Link) HasPassword() bool { return l.PasswordHash != "" }

// ExpiredAt reports whether the link is past its expiry at now.
func (l Link) ExpiredAt(now time.Time) bool {
	return l.ExpiresAt != nil && !now.Before(*l.ExpiresAt)
}

// QuotaReached reports whether no further views are allowed.
func (l Link) QuotaReached() bool {
	return l.MaxViews != nil && l.CurrentViews >= *l.MaxViews
}

// Patch is a partial update of owner-controlled fields. Nil pointers leave
// the column untouched; the Clear flags set nullable columns back to NULL.
type Patch struct {
	Title          *string
	Description    *string
	ExpiresAt      *time.Time
	ClearExpiresAt bool
	MaxViews       *int32
	ClearMaxViews  bool
	IsActive       *bool
	PasswordHash   *string
	ClearPassword  bool
}

// AccessRecord is one granted read of a link. Records are append-only.
type AccessRecord struct {
	ID         int64
	LinkID     uuid.UUID
	ViewerHash string
	Referrer   string
	UserAgent  string
	ViewedAt   time.Time
}

// Grant is the outcome of a successful read: the public part of the link.
type Grant struct {
	LinkID      uuid.UUID
	Title       string
	Description string
	Content     string
	ContentType string
	Views       int32 // view count after this read
}

// AnalyticsSummary aggregates a link's access history.
type AnalyticsSummary struct {
	TotalViews  int32
	RecordCount int
}

// AnalyticsReport is what an owner sees for one link.
type AnalyticsReport struct {
	Link    Link
	Records []AccessRecord
	Summary AnalyticsSummary
}

func cloneLink(l Link) Link {
	if l.ExpiresAt != nil {
		t := *l.ExpiresAt
		l.ExpiresAt = &t
	}
	if l.MaxViews != nil {
		v := *l.MaxViews
		l.MaxViews = &v
	}
	return l
}

// Field limits.
const (
	MaxTitleLength       = 200
	MaxDescriptionLength = 2000
	MaxContentTypeLength = 100
	MaxContentBytes      = 512 << 10
)

func validateTitle(title string) error {
	switch {
	case strings.TrimSpace(title) == "":
		return fieldErr("title", "is required")
	case utf8.RuneCountInString(title) > MaxTitleLength:
		return fieldErr("title", fmt.Sprintf("must be at most %d characters", MaxTitleLength))
	}
	return nil
}

func validateDescription(description string) error {
	if utf8.RuneCountInString(description) > MaxDescriptionLength {
		return fieldErr("description", fmt.Sprintf("must be at most %d characters", MaxDescriptionLength))
	}
	return nil
}

func validateContent(content string) error {
	switch {
	case strings.TrimSpace(content) == "":
		return fieldErr("content", "is required")
	case len(content) > MaxContentBytes:
		return fieldErr("content", fmt.Sprintf("must be at most %d bytes", MaxContentBytes))
	}
	return nil
}

func validateContentType(contentType string) error {
	switch {
	case strings.TrimSpace(contentType) == "":
		return fieldErr("content_type", "is required")
	case len(contentType) > MaxContentTypeLength:
		return fieldErr("content_type", fmt.Sprintf("must be at most %d characters", MaxContentTypeLength))
	}
	return nil
}

func validateMaxViews(maxViews *int32) error {
	if maxViews != nil && *maxViews < 0 {
		return fieldErr("max_views", "must not be negative")
	}
	return nil
}

// validateForInsert checks the columns a store requires before writing a
// new link.
func validateForInsert(link Link) error {
	if link.OwnerID == uuid.Nil {
		return fieldErr("owner_id", "is required")
	}
	if link.Token == "" {
		return fieldErr("token", "is required")
	}
	for _, err := range []error{
		validateTitle(link.Title),
		validateDescription(link.Description),
		validateContent(link.Content),
		validateContentType(link.ContentType),
		validateMaxViews(link.MaxViews),
	} {
		if err != nil {
			return err
		}
	}
	return nil
}
