package share

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/sundayezeilo/linkgate/internal/errx"
	"github.com/sundayezeilo/linkgate/internal/passwd"
	"github.com/sundayezeilo/linkgate/tokengen"
)

// AccessRequest is one attempt to read a link by token.
type AccessRequest struct {
	Token      string
	Password   string // empty means not supplied
	ViewerAddr string
	Referrer   string
	UserAgent  string
}

// AccessGate decides whether a read is allowed and, if so, consumes one view.
type AccessGate interface {
	Evaluate(ctx context.Context, req AccessRequest) (Grant, error)
}

// ViewerHasher turns a network identity into an opaque stable value.
type ViewerHasher interface {
	Sum(identity string) string
}

// GateConfig wires the gate's collaborators. Links, Counter and Verifier
// are required.
type GateConfig struct {
	Links        LinkReader
	Counter      ViewCounter
	Verifier     passwd.Verifier
	Recorder     AccessRecorder
	Fingerprints ViewerHasher
	Attempts     AttemptGuard
	Now          func() time.Time
}

type gate struct {
	links        LinkReader
	counter      ViewCounter
	verifier     passwd.Verifier
	recorder     AccessRecorder
	fingerprints ViewerHasher
	attempts     AttemptGuard
	now          func() time.Time
}

// NewGate creates an AccessGate.
func NewGate(cfg GateConfig) AccessGate {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &gate{
		links:        cfg.Links,
		counter:      cfg.Counter,
		verifier:     cfg.Verifier,
		recorder:     cfg.Recorder,
		fingerprints: cfg.Fingerprints,
		attempts:     cfg.Attempts,
		now:          now,
	}
}

// Evaluate checks, in order: existence, active flag, expiry, view quota and
// password. The first failing check decides the error. Only when all pass is
// the view count advanced, atomically against the quota, and an access
// record queued. Denials have no side effects.
func (g *gate) Evaluate(ctx context.Context, req AccessRequest) (Grant, error) {
	const op = "share.gate.Evaluate"

	if tokengen.Validate(req.Token) != nil {
		return Grant{}, errx.E(op, errx.NotFound, ErrLinkNotFound)
	}

	link, err := g.links.GetByToken(ctx, req.Token)
	if err != nil {
		if errx.KindOf(err) == errx.NotFound {
			return Grant{}, errx.E(op, errx.NotFound, ErrLinkNotFound)
		}
		return Grant{}, errx.E(op, errx.Unavailable, err)
	}

	now := g.now()
	if err := servable(op, link, now); err != nil {
		return Grant{}, err
	}

	viewer := g.viewerHash(req.ViewerAddr)

	if link.HasPassword() {
		if req.Password == "" {
			return Grant{}, errx.E(op, errx.Unauthorized, ErrPasswordRequired)
		}
		if g.attempts != nil && !g.attempts.Allow(attemptKey(link.ID, viewer)) {
			return Grant{}, errx.E(op, errx.TooManyRequests, ErrTooManyAttempts)
		}
		if !g.verifier.Verify(req.Password, link.PasswordHash) {
			return Grant{}, errx.E(op, errx.Unauthorized, ErrPasswordIncorrect)
		}
	}

	// The snapshot may be stale by now, so the increment repeats the state
	// checks against the stored row.
	views, ok, err := g.counter.TryIncrementViews(ctx, link.ID, now)
	if err != nil {
		return Grant{}, errx.E(op, errx.Unavailable, err)
	}
	if !ok {
		return Grant{}, g.lostIncrement(ctx, op, req.Token, now)
	}

	if g.recorder != nil {
		g.recorder.Record(AccessRecord{
			LinkID:     link.ID,
			ViewerHash: viewer,
			Referrer:   req.Referrer,
			UserAgent:  req.UserAgent,
			ViewedAt:   now.UTC(),
		})
	}

	return Grant{
		LinkID:      link.ID,
		Title:       link.Title,
		Description: link.Description,
		Content:     link.Content,
		ContentType: link.ContentType,
		Views:       views,
	}, nil
}

// servable reports the first state check link fails at now.
func servable(op string, link Link, now time.Time) error {
	switch {
	case !link.IsActive:
		return errx.E(op, errx.NotFound, ErrLinkDisabled)
	case link.ExpiredAt(now):
		return errx.E(op, errx.NotFound, ErrLinkExpired)
	case link.QuotaReached():
		return errx.E(op, errx.Forbidden, ErrViewLimitExceeded)
	}
	return nil
}

// lostIncrement re-reads the link to explain a refused increment.
func (g *gate) lostIncrement(ctx context.Context, op, token string, now time.Time) error {
	link, err := g.links.GetByToken(ctx, token)
	if err != nil {
		if errx.Is(err, errx.NotFound) {
			return errx.E(op, errx.NotFound, ErrLinkNotFound)
		}
		return errx.E(op, errx.Unavailable, err)
	}
	if err := servable(op, link, now); err != nil {
		return err
	}
	return errx.E(op, errx.Forbidden, ErrViewLimitExceeded)
}

func (g *gate) viewerHash(addr string) string {
	if g.fingerprints == nil || addr == "" {
		return ""
	}
	return g.fingerprints.Sum(addr)
}

func attemptKey(linkID uuid.UUID, viewer string) string {
	return linkID.String() + "|" + viewer
}
