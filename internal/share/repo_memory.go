package share

import (
	"bytes"
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sundayezeilo/linkgate/internal/errx"
)

// MemoryRepository is a process-local Repository. Every method runs under a
// single mutex, so the quota check and the increment in TryIncrementViews
// happen as one step, as they do in the Postgres conditional UPDATE.
type MemoryRepository struct {
	mu       sync.Mutex
	links    map[uuid.UUID]*Link
	byToken  map[string]uuid.UUID
	records  map[uuid.UUID][]AccessRecord
	recordID int64

	now   func() time.Time
	newID func() (uuid.UUID, error)
}

// MemoryOption configures a MemoryRepository.
type MemoryOption func(*MemoryRepository)

// WithMemoryClock overrides the timestamp source.
func WithMemoryClock(now func() time.Time) MemoryOption {
	return func(r *MemoryRepository) {
		if now != nil {
			r.now = now
		}
	}
}

// WithMemoryIDs overrides primary key generation.
func WithMemoryIDs(newID func() (uuid.UUID, error)) MemoryOption {
	return func(r *MemoryRepository) {
		if newID != nil {
			r.newID = newID
		}
	}
}

// NewMemoryRepository returns an empty in-memory store.
func NewMemoryRepository(opts ...MemoryOption) *MemoryRepository {
	r := &MemoryRepository{
		links:   make(map[uuid.UUID]*Link),
		byToken: make(map[string]uuid.UUID),
		records: make(map[uuid.UUID][]AccessRecord),
		now:     time.Now,
		newID:   uuid.NewV7,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var _ Repository = (*MemoryRepository)(nil)

func (r *MemoryRepository) Create(_ context.Context, link Link) (Link, error) {
	const op = "share.memory.Create"

	if err := validateForInsert(link); err != nil {
		return Link{}, errx.E(op, errx.Invalid, err)
	}
	if link.ID == uuid.Nil {
		id, err := r.newID()
		if err != nil {
			return Link{}, errx.E(op, errx.Unavailable, err)
		}
		link.ID = id
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byToken[link.Token]; taken {
		return Link{}, errx.E(op, errx.Conflict, ErrTokenTaken)
	}
	if _, taken := r.links[link.ID]; taken {
		return Link{}, errx.E(op, errx.Conflict, errors.New("id already in use"))
	}

	now := r.now().UTC()
	stored := cloneLink(link)
	stored.CurrentViews = 0
	stored.IsActive = true
	stored.CreatedAt = now
	stored.UpdatedAt = now

	r.links[stored.ID] = &stored
	r.byToken[stored.Token] = stored.ID
	return cloneLink(stored), nil
}

func (r *MemoryRepository) GetByID(_ context.Context, id uuid.UUID) (Link, error) {
	const op = "share.memory.GetByID"

	r.mu.Lock()
	defer r.mu.Unlock()

	link, ok := r.links[id]
	if !ok {
		return Link{}, errx.E(op, errx.NotFound, ErrLinkNotFound)
	}
	return cloneLink(*link), nil
}

func (r *MemoryRepository) GetByToken(_ context.Context, token string) (Link, error) {
	const op = "share.memory.GetByToken"

	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byToken[token]
	if !ok {
		return Link{}, errx.E(op, errx.NotFound, ErrLinkNotFound)
	}
	return cloneLink(*r.links[id]), nil
}

func (r *MemoryRepository) ListByOwner(_ context.Context, ownerID uuid.UUID) ([]Link, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	links := make([]Link, 0)
	for _, link := range r.links {
		if link.OwnerID == ownerID {
			links = append(links, cloneLink(*link))
		}
	}
	slices.SortFunc(links, func(a, b Link) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return bytes.Compare(b.ID[:], a.ID[:])
	})
	return links, nil
}

// owned returns the stored link only when it belongs to ownerID.
// Callers must hold r.mu.
func (r *MemoryRepository) owned(ownerID, id uuid.UUID) (*Link, bool) {
	link, ok := r.links[id]
	if !ok || link.OwnerID != ownerID {
		return nil, false
	}
	return link, true
}

func (r *MemoryRepository) UpdateByOwner(_ context.Context, ownerID, id uuid.UUID, patch Patch) (Link, error) {
	const op = "share.memory.UpdateByOwner"

	r.mu.Lock()
	defer r.mu.Unlock()

	link, ok := r.owned(ownerID, id)
	if !ok {
		return Link{}, errx.E(op, errx.NotFound, ErrLinkNotFound)
	}

	next := cloneLink(*link)
	if patch.Title != nil {
		next.Title = *patch.Title
	}
	if patch.Description != nil {
		next.Description = *patch.Description
	}
	switch {
	case patch.ClearExpiresAt:
		next.ExpiresAt = nil
	case patch.ExpiresAt != nil:
		t := *patch.ExpiresAt
		next.ExpiresAt = &t
	}
	switch {
	case patch.ClearMaxViews:
		next.MaxViews = nil
	case patch.MaxViews != nil:
		v := *patch.MaxViews
		next.MaxViews = &v
	}
	if patch.IsActive != nil {
		next.IsActive = *patch.IsActive
	}
	switch {
	case patch.ClearPassword:
		next.PasswordHash = ""
	case patch.PasswordHash != nil:
		next.PasswordHash = *patch.PasswordHash
	}

	if err := validateMaxViews(next.MaxViews); err != nil {
		return Link{}, errx.E(op, errx.Invalid, err)
	}
	if next.MaxViews != nil && next.CurrentViews > *next.MaxViews {
		return Link{}, errx.E(op, errx.Invalid, fieldErr("max_views", ErrQuotaBelowViews.Error()))
	}

	next.UpdatedAt = r.now().UTC()
	*link = next
	return cloneLink(next), nil
}

func (r *MemoryRepository) ToggleActive(_ context.Context, ownerID, id uuid.UUID) (Link, error) {
	const op = "share.memory.ToggleActive"

	r.mu.Lock()
	defer r.mu.Unlock()

	link, ok := r.owned(ownerID, id)
	if !ok {
		return Link{}, errx.E(op, errx.NotFound, ErrLinkNotFound)
	}
	link.IsActive = !link.IsActive
	link.UpdatedAt = r.now().UTC()
	return cloneLink(*link), nil
}

func (r *MemoryRepository) DeleteByOwner(_ context.Context, ownerID, id uuid.UUID) error {
	const op = "share.memory.DeleteByOwner"

	r.mu.Lock()
	defer r.mu.Unlock()

	link, ok := r.owned(ownerID, id)
	if !ok {
		return errx.E(op, errx.NotFound, ErrLinkNotFound)
	}
	delete(r.byToken, link.Token)
	delete(r.links, id)
	delete(r.records, id)
	return nil
}

// TryIncrementViews leaves UpdatedAt alone; it tracks owner edits only.
func (r *MemoryRepository) TryIncrementViews(_ context.Context, id uuid.UUID, now time.Time) (int32, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	link, ok := r.links[id]
	if !ok || !link.IsActive || link.ExpiredAt(now) || link.QuotaReached() {
		return 0, false, nil
	}
	link.CurrentViews++
	return link.CurrentViews, true, nil
}

func (r *MemoryRepository) InsertAccessRecord(_ context.Context, rec AccessRecord) error {
	const op = "share.memory.InsertAccessRecord"

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.links[rec.LinkID]; !ok {
		return errx.E(op, errx.NotFound, ErrLinkNotFound)
	}
	if rec.ViewedAt.IsZero() {
		rec.ViewedAt = r.now()
	}
	r.recordID++
	rec.ID = r.recordID
	rec.ViewedAt = rec.ViewedAt.UTC()
	r.records[rec.LinkID] = append(r.records[rec.LinkID], rec)
	return nil
}

func (r *MemoryRepository) ListAccessRecords(_ context.Context, linkID uuid.UUID) ([]AccessRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	records := slices.Clone(r.records[linkID])
	if records == nil {
		records = []AccessRecord{}
	}
	slices.SortFunc(records, func(a, b AccessRecord) int {
		if c := b.ViewedAt.Compare(a.ViewedAt); c != 0 {
			return c
		}
		switch {
		case a.ID > b.ID:
			return -1
		case a.ID < b.ID:
			return 1
		}
		return 0
	})
	return records, nil
}
