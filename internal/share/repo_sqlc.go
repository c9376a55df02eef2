package share

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	db "github.com/sundayezeilo/linkgate/internal/db/sqlc"
	"github.com/sundayezeilo/linkgate/internal/errx"
)

// querier is an internal interface that abstracts *db.Queries
type querier interface {
	CreateLink(ctx context.Context, arg db.CreateLinkParams) (db.ShareableLink, error)
	GetLinkByID(ctx context.Context, id uuid.UUID) (db.ShareableLink, error)
	GetLinkByToken(ctx context.Context, token string) (db.ShareableLink, error)
	ListLinksByOwner(ctx context.Context, ownerID uuid.UUID) ([]db.ShareableLink, error)
	UpdateLinkByOwner(ctx context.Context, arg db.UpdateLinkByOwnerParams) (db.ShareableLink, error)
	ToggleLinkActive(ctx context.Context, arg db.ToggleLinkActiveParams) (db.ShareableLink, error)
	DeleteLinkByOwner(ctx context.Context, arg db.DeleteLinkByOwnerParams) (int64, error)
	TryIncrementViews(ctx context.Context, arg db.TryIncrementViewsParams) (int32, error)
	InsertAccessRecord(ctx context.Context, arg db.InsertAccessRecordParams) error
	ListAccessRecords(ctx context.Context, linkID uuid.UUID) ([]db.LinkAnalytic, error)
}

type repo struct {
	q     querier
	newID func() (uuid.UUID, error)
}

// RepositoryConfig holds configuration for the repository
type RepositoryConfig struct {
	// NewID generates primary keys. Defaults to uuid.NewV7.
	NewID func() (uuid.UUID, error)
}

// NewRepository creates a Postgres-backed Repository over sqlc queries.
func NewRepository(q querier, config *RepositoryConfig) Repository {
	if config == nil {
		config = &RepositoryConfig{}
	}

	newID := config.NewID
	if newID == nil {
		newID = uuid.NewV7
	}

	return &repo{
		q:     q,
		newID: newID,
	}
}

func mustTime(ts pgtype.Timestamptz, field string) (time.Time, error) {
	if !ts.Valid {
		return time.Time{}, fmt.Errorf("%s unexpectedly NULL", field)
	}
	return ts.Time, nil
}

func timePtr(ts pgtype.Timestamptz) *time.Time {
	if !ts.Valid {
		return nil
	}
	t := ts.Time
	return &t
}

func int32Ptr(v pgtype.Int4) *int32 {
	if !v.Valid {
		return nil
	}
	n := v.Int32
	return &n
}

func toTimestamptz(t *time.Time) pgtype.Timestamptz {
	if t == nil {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: *t, Valid: true}
}

func toInt4(v *int32) pgtype.Int4 {
	if v == nil {
		return pgtype.Int4{}
	}
	return pgtype.Int4{Int32: *v, Valid: true}
}

func toText(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}

func toDomainLink(x db.ShareableLink) (Link, error) {
	createdAt, err := mustTime(x.CreatedAt, "created_at")
	if err != nil {
		return Link{}, err
	}
	updatedAt, err := mustTime(x.UpdatedAt, "updated_at")
	if err != nil {
		return Link{}, err
	}

	return Link{
		ID:           x.ID,
		OwnerID:      x.OwnerID,
		Token:        x.Token,
		Title:        x.Title,
		Description:  x.Description,
		Content:      x.Content,
		ContentType:  x.ContentType,
		ExpiresAt:    timePtr(x.ExpiresAt),
		MaxViews:     int32Ptr(x.MaxViews),
		CurrentViews: x.CurrentViews,
		PasswordHash: x.PasswordHash.String,
		IsActive:     x.IsActive,
		CreatedAt:    createdAt,
		UpdatedAt:    updatedAt,
	}, nil
}

func toDomainRecord(x db.LinkAnalytic) (AccessRecord, error) {
	viewedAt, err := mustTime(x.ViewedAt, "viewed_at")
	if err != nil {
		return AccessRecord{}, err
	}
	return AccessRecord{
		ID:         x.ID,
		LinkID:     x.LinkID,
		ViewerHash: x.ViewerHash.String,
		Referrer:   x.Referrer.String,
		UserAgent:  x.UserAgent.String,
		ViewedAt:   viewedAt,
	}, nil
}

func mapRepoError(op string, err error) error {
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return errx.E(op, errx.NotFound, ErrLinkNotFound)

	case isTokenUniqueViolation(err):
		return errx.E(op, errx.Conflict, fmt.Errorf("%w: %w", ErrTokenTaken, err))

	case isQuotaCheckViolation(err):
		return errx.E(op, errx.Invalid, fieldErr("max_views", ErrQuotaBelowViews.Error()))

	case isNegativeQuotaViolation(err):
		return errx.E(op, errx.Invalid, fieldErr("max_views", "must not be negative"))

	case isLinkForeignKeyViolation(err):
		return errx.E(op, errx.NotFound, ErrLinkNotFound)

	default:
		return errx.E(op, errx.Unavailable, err)
	}
}

func (r *repo) Create(ctx context.Context, link Link) (Link, error) {
	const op = "share.repo.Create"

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

	row, err := r.q.CreateLink(ctx, db.CreateLinkParams{
		ID:           link.ID,
		OwnerID:      link.OwnerID,
		Token:        link.Token,
		Title:        link.Title,
		Description:  link.Description,
		Content:      link.Content,
		ContentType:  link.ContentType,
		ExpiresAt:    toTimestamptz(link.ExpiresAt),
		MaxViews:     toInt4(link.MaxViews),
		PasswordHash: toText(link.PasswordHash),
	})
	if err != nil {
		return Link{}, mapRepoError(op, err)
	}

	return toDomainLink(row)
}

func (r *repo) GetByID(ctx context.Context, id uuid.UUID) (Link, error) {
	const op = "share.repo.GetByID"

	row, err := r.q.GetLinkByID(ctx, id)
	if err != nil {
		return Link{}, mapRepoError(op, err)
	}
	return toDomainLink(row)
}

func (r *repo) GetByToken(ctx context.Context, token string) (Link, error) {
	const op = "share.repo.GetByToken"

	row, err := r.q.GetLinkByToken(ctx, token)
	if err != nil {
		return Link{}, mapRepoError(op, err)
	}
	return toDomainLink(row)
}

func (r *repo) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]Link, error) {
	const op = "share.repo.ListByOwner"

	rows, err := r.q.ListLinksByOwner(ctx, ownerID)
	if err != nil {
		return nil, mapRepoError(op, err)
	}

	links := make([]Link, 0, len(rows))
	for _, row := range rows {
		link, err := toDomainLink(row)
		if err != nil {
			return nil, errx.E(op, errx.Internal, err)
		}
		links = append(links, link)
	}
	return links, nil
}

func (r *repo) UpdateByOwner(ctx context.Context, ownerID, id uuid.UUID, patch Patch) (Link, error) {
	const op = "share.repo.UpdateByOwner"

	params := db.UpdateLinkByOwnerParams{ID: id, OwnerID: ownerID}
	if patch.Title != nil {
		params.SetTitle, params.Title = true, *patch.Title
	}
	if patch.Description != nil {
		params.SetDescription, params.Description = true, *patch.Description
	}
	switch {
	case patch.ClearExpiresAt:
		params.SetExpiresAt = true
	case patch.ExpiresAt != nil:
		params.SetExpiresAt, params.ExpiresAt = true, toTimestamptz(patch.ExpiresAt)
	}
	switch {
	case patch.ClearMaxViews:
		params.SetMaxViews = true
	case patch.MaxViews != nil:
		params.SetMaxViews, params.MaxViews = true, toInt4(patch.MaxViews)
	}
	if patch.IsActive != nil {
		params.SetIsActive, params.IsActive = true, *patch.IsActive
	}
	switch {
	case patch.ClearPassword:
		params.SetPasswordHash = true
	case patch.PasswordHash != nil:
		params.SetPasswordHash, params.PasswordHash = true, toText(*patch.PasswordHash)
	}

	row, err := r.q.UpdateLinkByOwner(ctx, params)
	if err != nil {
		return Link{}, mapRepoError(op, err)
	}
	return toDomainLink(row)
}

func (r *repo) ToggleActive(ctx context.Context, ownerID, id uuid.UUID) (Link, error) {
	const op = "share.repo.ToggleActive"

	row, err := r.q.ToggleLinkActive(ctx, db.ToggleLinkActiveParams{ID: id, OwnerID: ownerID})
	if err != nil {
		return Link{}, mapRepoError(op, err)
	}
	return toDomainLink(row)
}

func (r *repo) DeleteByOwner(ctx context.Context, ownerID, id uuid.UUID) error {
	const op = "share.repo.DeleteByOwner"

	n, err := r.q.DeleteLinkByOwner(ctx, db.DeleteLinkByOwnerParams{ID: id, OwnerID: ownerID})
	if err != nil {
		return mapRepoError(op, err)
	}
	if n == 0 {
		return errx.E(op, errx.NotFound, ErrLinkNotFound)
	}
	return nil
}

// TryIncrementViews relies on the conditional UPDATE: no returned row means
// the link was gone, disabled, expired or at its quota when the statement ran.
func (r *repo) TryIncrementViews(ctx context.Context, id uuid.UUID, now time.Time) (int32, bool, error) {
	const op = "share.repo.TryIncrementViews"

	views, err := r.q.TryIncrementViews(ctx, db.TryIncrementViewsParams{
		ID:  id,
		Now: pgtype.Timestamptz{Time: now, Valid: true},
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, mapRepoError(op, err)
	}
	return views, true, nil
}

func (r *repo) InsertAccessRecord(ctx context.Context, rec AccessRecord) error {
	const op = "share.repo.InsertAccessRecord"

	if rec.ViewedAt.IsZero() {
		rec.ViewedAt = time.Now()
	}
	err := r.q.InsertAccessRecord(ctx, db.InsertAccessRecordParams{
		LinkID:     rec.LinkID,
		ViewerHash: toText(rec.ViewerHash),
		Referrer:   toText(rec.Referrer),
		UserAgent:  toText(rec.UserAgent),
		ViewedAt:   pgtype.Timestamptz{Time: rec.ViewedAt, Valid: true},
	})
	if err != nil {
		return mapRepoError(op, err)
	}
	return nil
}

func (r *repo) ListAccessRecords(ctx context.Context, linkID uuid.UUID) ([]AccessRecord, error) {
	const op = "share.repo.ListAccessRecords"

	rows, err := r.q.ListAccessRecords(ctx, linkID)
	if err != nil {
		return nil, mapRepoError(op, err)
	}

	records := make([]AccessRecord, 0, len(rows))
	for _, row := range rows {
		rec, err := toDomainRecord(row)
		if err != nil {
			return nil, errx.E(op, errx.Internal, err)
		}
		records = append(records, rec)
	}
	return records, nil
}
