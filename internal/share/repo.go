package share

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines the persistence operations for shareable links and
// their access records.
//
// Owner-scoped methods match on (id, owner) and report NotFound for any
// other owner. GetByToken is unauthenticated and returns the full record,
// including OwnerID and PasswordHash; only the access gate should call it.
type Repository interface {
	Create(ctx context.Context, link Link) (Link, error)
	GetByID(ctx context.Context, id uuid.UUID) (Link, error)
	GetByToken(ctx context.Context, token string) (Link, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]Link, error)
	UpdateByOwner(ctx context.Context, ownerID, id uuid.UUID, patch Patch) (Link, error)
	ToggleActive(ctx context.Context, ownerID, id uuid.UUID) (Link, error)
	DeleteByOwner(ctx context.Context, ownerID, id uuid.UUID) error

	ViewCounter
	AccessRecordStore
}

// ViewCounter advances a link's view count.
type ViewCounter interface {
	// TryIncrementViews adds one view if, at now, the link is still active,
	// unexpired and under its quota, as a single atomic step. It reports the
	// new count and whether the increment happened.
	TryIncrementViews(ctx context.Context, id uuid.UUID, now time.Time) (int32, bool, error)
}

// AccessRecordStore persists access analytics.
type AccessRecordStore interface {
	InsertAccessRecord(ctx context.Context, rec AccessRecord) error
	// ListAccessRecords returns records newest first.
	ListAccessRecords(ctx context.Context, linkID uuid.UUID) ([]AccessRecord, error)
}

// LinkReader is the read side the access gate needs.
type LinkReader interface {
	GetByToken(ctx context.Context, token string) (Link, error)
}
