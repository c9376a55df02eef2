package share

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/sundayezeilo/linkgate/internal/errx"
	"github.com/sundayezeilo/linkgate/internal/passwd"
	"github.com/sundayezeilo/linkgate/tokengen"
)

const DefaultTokenMaxRetries = 3

// CreateLinkRequest represents the parameters for creating a new link.
type CreateLinkRequest struct {
	Title       string
	Description string
	Content     string
	ContentType string
	ExpiresAt   *time.Time
	MaxViews    *int32
	Password    string // optional; empty means no password
}

// UpdateLinkRequest is a partial update. Nil fields are left unchanged;
// the Clear flags remove the expiry, the view quota or the password.
type UpdateLinkRequest struct {
	Title          *string
	Description    *string
	ExpiresAt      *time.Time
	ClearExpiresAt bool
	MaxViews       *int32
	ClearMaxViews  bool
	IsActive       *bool
	Password       *string
	ClearPassword  bool
}

// Service defines the owner operations on shareable links.
type Service interface {
	Create(ctx context.Context, owner uuid.UUID, req CreateLinkRequest) (Link, error)
	List(ctx context.Context, owner uuid.UUID) ([]Link, error)
	Update(ctx context.Context, owner, id uuid.UUID, req UpdateLinkRequest) (Link, error)
	Toggle(ctx context.Context, owner, id uuid.UUID) (Link, error)
	Delete(ctx context.Context, owner, id uuid.UUID) error
	Analytics(ctx context.Context, owner, id uuid.UUID) (AnalyticsReport, error)
}

type service struct {
	repo            Repository
	tokens          tokengen.Minter
	tokenMaxRetries int
	passwords       passwd.Verifier
	now             func() time.Time
}

// ServiceConfig holds configuration for the service.
type ServiceConfig struct {
	TokenMinter     tokengen.Minter
	TokenMaxRetries int // attempts when minting a unique token (default: 3)
	Passwords       passwd.Verifier
	Now             func() time.Time
}

// NewService creates a new service instance.
func NewService(repo Repository, config *ServiceConfig) Service {
	if config == nil {
		config = &ServiceConfig{}
	}

	tokens := config.TokenMinter
	if tokens == nil {
		tokens = tokengen.NewHex()
	}

	retries := config.TokenMaxRetries
	if retries <= 0 {
		retries = DefaultTokenMaxRetries
	}

	passwords := config.Passwords
	if passwords == nil {
		passwords = passwd.NewBcrypt(0)
	}

	now := config.Now
	if now == nil {
		now = time.Now
	}

	return &service{
		repo:            repo,
		tokens:          tokens,
		tokenMaxRetries: retries,
		passwords:       passwords,
		now:             now,
	}
}

var errNoOwner = errors.New("owner identity required")

func (s *service) Create(ctx context.Context, owner uuid.UUID, req CreateLinkRequest) (Link, error) {
	const op = "share.service.Create"

	if owner == uuid.Nil {
		return Link{}, errx.E(op, errx.Unauthorized, errNoOwner)
	}
	if err := s.validateCreate(req); err != nil {
		return Link{}, errx.E(op, errx.Invalid, err)
	}

	link := Link{
		OwnerID:     owner,
		Title:       req.Title,
		Description: req.Description,
		Content:     req.Content,
		ContentType: req.ContentType,
		ExpiresAt:   req.ExpiresAt,
		MaxViews:    req.MaxViews,
	}
	if req.Password != "" {
		digest, err := s.passwords.Hash(req.Password)
		if err != nil {
			return Link{}, errx.E(op, errx.Internal, err)
		}
		link.PasswordHash = digest
	}

	// Token collisions are retried with a fresh token; anything else fails.
	for range s.tokenMaxRetries {
		token, err := s.tokens.Mint()
		if err != nil {
			return Link{}, errx.E(op, errx.Unavailable, err)
		}
		link.Token = token

		created, err := s.repo.Create(ctx, link)
		if err == nil {
			return created, nil
		}
		if !errx.Is(err, errx.Conflict) {
			return Link{}, errx.E(op, errx.KindOf(err), err)
		}
	}

	return Link{}, errx.E(op, errx.Unavailable,
		errors.New("could not mint unique token after retries"))
}

func (s *service) List(ctx context.Context, owner uuid.UUID) ([]Link, error) {
	const op = "share.service.List"

	if owner == uuid.Nil {
		return nil, errx.E(op, errx.Unauthorized, errNoOwner)
	}
	links, err := s.repo.ListByOwner(ctx, owner)
	if err != nil {
		return nil, errx.E(op, errx.KindOf(err), err)
	}
	return links, nil
}

func (s *service) Update(ctx context.Context, owner, id uuid.UUID, req UpdateLinkRequest) (Link, error) {
	const op = "share.service.Update"

	if _, err := s.authorize(ctx, op, owner, id); err != nil {
		return Link{}, err
	}
	if err := s.validateUpdate(req); err != nil {
		return Link{}, errx.E(op, errx.Invalid, err)
	}

	patch := Patch{
		Title:          req.Title,
		Description:    req.Description,
		ExpiresAt:      req.ExpiresAt,
		ClearExpiresAt: req.ClearExpiresAt,
		MaxViews:       req.MaxViews,
		ClearMaxViews:  req.ClearMaxViews,
		IsActive:       req.IsActive,
		ClearPassword:  req.ClearPassword,
	}
	if req.Password != nil && !req.ClearPassword {
		digest, err := s.passwords.Hash(*req.Password)
		if err != nil {
			return Link{}, errx.E(op, errx.Internal, err)
		}
		patch.PasswordHash = &digest
	}

	link, err := s.repo.UpdateByOwner(ctx, owner, id, patch)
	if err != nil {
		return Link{}, errx.E(op, errx.KindOf(err), err)
	}
	return link, nil
}

func (s *service) Toggle(ctx context.Context, owner, id uuid.UUID) (Link, error) {
	const op = "share.service.Toggle"

	if _, err := s.authorize(ctx, op, owner, id); err != nil {
		return Link{}, err
	}
	link, err := s.repo.ToggleActive(ctx, owner, id)
	if err != nil {
		return Link{}, errx.E(op, errx.KindOf(err), err)
	}
	return link, nil
}

func (s *service) Delete(ctx context.Context, owner, id uuid.UUID) error {
	const op = "share.service.Delete"

	if _, err := s.authorize(ctx, op, owner, id); err != nil {
		return err
	}
	if err := s.repo.DeleteByOwner(ctx, owner, id); err != nil {
		return errx.E(op, errx.KindOf(err), err)
	}
	return nil
}

func (s *service) Analytics(ctx context.Context, owner, id uuid.UUID) (AnalyticsReport, error) {
	const op = "share.service.Analytics"

	link, err := s.authorize(ctx, op, owner, id)
	if err != nil {
		return AnalyticsReport{}, err
	}

	records, err := s.repo.ListAccessRecords(ctx, link.ID)
	if err != nil {
		return AnalyticsReport{}, errx.E(op, errx.KindOf(err), err)
	}

	return AnalyticsReport{
		Link:    link,
		Records: records,
		Summary: AnalyticsSummary{
			TotalViews:  link.CurrentViews,
			RecordCount: len(records),
		},
	}, nil
}

// authorize distinguishes a missing link from one owned by someone else.
// Both render as not found; only the latter is a Permission error.
func (s *service) authorize(ctx context.Context, op string, owner, id uuid.UUID) (Link, error) {
	if owner == uuid.Nil {
		return Link{}, errx.E(op, errx.Unauthorized, errNoOwner)
	}
	link, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Link{}, errx.E(op, errx.KindOf(err), err)
	}
	if link.OwnerID != owner {
		return Link{}, errx.E(op, errx.Permission, ErrNotOwner)
	}
	return link, nil
}

func (s *service) validateCreate(req CreateLinkRequest) error {
	for _, err := range []error{
		validateTitle(req.Title),
		validateDescription(req.Description),
		validateContent(req.Content),
		validateContentType(req.ContentType),
		validateMaxViews(req.MaxViews),
		s.validateExpiry(req.ExpiresAt),
	} {
		if err != nil {
			return err
		}
	}
	if req.Password != "" {
		if err := passwd.Validate(req.Password); err != nil {
			return fieldErr("password", err.Error())
		}
	}
	return nil
}

func (s *service) validateUpdate(req UpdateLinkRequest) error {
	if req.Title != nil {
		if err := validateTitle(*req.Title); err != nil {
			return err
		}
	}
	if req.Description != nil {
		if err := validateDescription(*req.Description); err != nil {
			return err
		}
	}
	if !req.ClearMaxViews {
		if err := validateMaxViews(req.MaxViews); err != nil {
			return err
		}
	}
	if !req.ClearExpiresAt {
		if err := s.validateExpiry(req.ExpiresAt); err != nil {
			return err
		}
	}
	if req.Password != nil && !req.ClearPassword {
		if err := passwd.Validate(*req.Password); err != nil {
			return fieldErr("password", err.Error())
		}
	}
	return nil
}

func (s *service) validateExpiry(expiresAt *time.Time) error {
	if expiresAt != nil && !expiresAt.After(s.now()) {
		return fieldErr("expires_at", "must be in the future")
	}
	return nil
}
