package share

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/sundayezeilo/linkgate/internal/auth"
	"github.com/sundayezeilo/linkgate/internal/errx"
	"github.com/sundayezeilo/linkgate/internal/httpx"
)

// PasswordHeader carries a link password without putting it in the URL.
const PasswordHeader = "X-Share-Password"

// CreateLinkBody represents the JSON request body for creating a link.
type CreateLinkBody struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Content     string     `json:"content"`
	ContentType string     `json:"content_type"`
	ExpiresAt   *time.Time `json:"expires_at"`
	MaxViews    *int32     `json:"max_views"`
	Password    string     `json:"password"`
}

// UpdateLinkBody is a partial update. Absent keys are left unchanged; an
// explicit null clears expires_at, max_views or password.
type UpdateLinkBody struct {
	Title       httpx.Optional[string]    `json:"title"`
	Description httpx.Optional[string]    `json:"description"`
	ExpiresAt   httpx.Optional[time.Time] `json:"expires_at"`
	MaxViews    httpx.Optional[int32]     `json:"max_views"`
	IsActive    httpx.Optional[bool]      `json:"is_active"`
	Password    httpx.Optional[string]    `json:"password"`
}

// LinkResponse is the owner's view of a link. The password hash never
// leaves the server; HasPassword stands in for it.
type LinkResponse struct {
	ID           string     `json:"id"`
	Token        string     `json:"token"`
	ShareURL     string     `json:"share_url"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Content      string     `json:"content"`
	ContentType  string     `json:"content_type"`
	ExpiresAt    *time.Time `json:"expires_at"`
	MaxViews     *int32     `json:"max_views"`
	CurrentViews int32      `json:"current_views"`
	HasPassword  bool       `json:"has_password"`
	IsActive     bool       `json:"is_active"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// PublicLinkResponse is what an anonymous reader receives.
type PublicLinkResponse struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Content     string `json:"content"`
	ContentType string `json:"content_type"`
}

// AccessRecordResponse is one entry of a link's access history.
type AccessRecordResponse struct {
	ViewerHash string    `json:"viewer_hash,omitempty"`
	Referrer   string    `json:"referrer,omitempty"`
	UserAgent  string    `json:"user_agent,omitempty"`
	ViewedAt   time.Time `json:"viewed_at"`
}

// AnalyticsResponse is the owner's analytics view of one link.
type AnalyticsResponse struct {
	Link      LinkResponse           `json:"link"`
	Analytics []AccessRecordResponse `json:"analytics"`
	Summary   SummaryResponse        `json:"summary"`
}

type SummaryResponse struct {
	TotalViews       int32 `json:"total_views"`
	AnalyticsRecords int   `json:"analytics_records"`
}

type passwordErrorResponse struct {
	httpx.ErrorResponse
	RequiresPassword bool `json:"requiresPassword"`
}

// Handler provides HTTP handlers for shareable links.
type Handler struct {
	service    Service
	gate       AccessGate
	logger     *slog.Logger
	baseURL    string
	trustProxy bool
}

// HandlerConfig holds configuration for the handler.
type HandlerConfig struct {
	Service    Service
	Gate       AccessGate
	Logger     *slog.Logger
	BaseURL    string // e.g. "https://share.example.com"
	TrustProxy bool   // use X-Forwarded-For for viewer identity
}

// NewHandler creates a new Handler instance.
func NewHandler(cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Handler{
		service:    cfg.Service,
		gate:       cfg.Gate,
		logger:     logger,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		trustProxy: cfg.TrustProxy,
	}
}

func (h *Handler) requestLogger(r *http.Request) *slog.Logger {
	return h.logger.With(
		"request_id", httpx.GetRequestID(r.Context()),
		"method", r.Method,
		"path", r.URL.Path,
	)
}

// CreateLink handles POST /api/share.
func (h *Handler) CreateLink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.requestLogger(r)

	owner, ok := auth.OwnerFromContext(ctx)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "authentication required", nil)
		return
	}

	body, err := httpx.DecodeJSON[CreateLinkBody](r)
	if err != nil {
		logger.WarnContext(ctx, "failed to decode request", "error", err.Error())
		httpx.WriteDecodeError(w, err)
		return
	}

	link, err := h.service.Create(ctx, owner, CreateLinkRequest{
		Title:       body.Title,
		Description: body.Description,
		Content:     body.Content,
		ContentType: body.ContentType,
		ExpiresAt:   body.ExpiresAt,
		MaxViews:    body.MaxViews,
		Password:    body.Password,
	})
	if err != nil {
		h.handleOwnerError(ctx, w, logger, err, owner)
		return
	}

	logger.InfoContext(ctx, "link created",
		"link_id", link.ID.String(),
		"has_password", link.HasPassword(),
		"has_expiry", link.ExpiresAt != nil,
		"has_quota", link.MaxViews != nil,
	)

	httpx.WriteJSON(w, http.StatusCreated, map[string]LinkResponse{"link": h.toLinkResponse(link)})
}

// ListLinks handles GET /api/share.
func (h *Handler) ListLinks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.requestLogger(r)

	owner, ok := auth.OwnerFromContext(ctx)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "authentication required", nil)
		return
	}

	links, err := h.service.List(ctx, owner)
	if err != nil {
		h.handleOwnerError(ctx, w, logger, err, owner)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string][]LinkResponse{
		"links": lo.Map(links, func(l Link, _ int) LinkResponse { return h.toLinkResponse(l) }),
	})
}

// ReadLink handles GET /api/share/{token}. It is the only unauthenticated
// route and the only one that consumes views.
func (h *Handler) ReadLink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.requestLogger(r)

	password := r.Header.Get(PasswordHeader)
	if password == "" {
		password = r.URL.Query().Get("password")
	}

	grant, err := h.gate.Evaluate(ctx, AccessRequest{
		Token:      r.PathValue("token"),
		Password:   password,
		ViewerAddr: httpx.ClientIP(r, h.trustProxy),
		Referrer:   r.Referer(),
		UserAgent:  r.UserAgent(),
	})
	if err != nil {
		h.handleReadError(ctx, w, logger, err)
		return
	}

	logger.DebugContext(ctx, "link read", "link_id", grant.LinkID.String(), "views", grant.Views)

	httpx.WriteJSON(w, http.StatusOK, PublicLinkResponse{
		Title:       grant.Title,
		Description: grant.Description,
		Content:     grant.Content,
		ContentType: grant.ContentType,
	})
}

// UpdateLink handles PUT /api/share/{id}.
func (h *Handler) UpdateLink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.requestLogger(r)

	owner, id, ok := h.ownerAndID(w, r)
	if !ok {
		return
	}
	logger = logger.With("link_id", id.String())

	body, err := httpx.DecodeJSON[UpdateLinkBody](r)
	if err != nil {
		logger.WarnContext(ctx, "failed to decode request", "error", err.Error())
		httpx.WriteDecodeError(w, err)
		return
	}
	req, err := body.toRequest()
	if err != nil {
		h.handleOwnerError(ctx, w, logger, errx.E("share.handler.UpdateLink", errx.Invalid, err), owner)
		return
	}

	link, err := h.service.Update(ctx, owner, id, req)
	if err != nil {
		h.handleOwnerError(ctx, w, logger, err, owner)
		return
	}

	logger.InfoContext(ctx, "link updated")
	httpx.WriteJSON(w, http.StatusOK, map[string]LinkResponse{"link": h.toLinkResponse(link)})
}

// ToggleLink handles POST /api/share/{id}/toggle.
func (h *Handler) ToggleLink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.requestLogger(r)

	owner, id, ok := h.ownerAndID(w, r)
	if !ok {
		return
	}
	logger = logger.With("link_id", id.String())

	link, err := h.service.Toggle(ctx, owner, id)
	if err != nil {
		h.handleOwnerError(ctx, w, logger, err, owner)
		return
	}

	logger.InfoContext(ctx, "link toggled", "is_active", link.IsActive)
	httpx.WriteJSON(w, http.StatusOK, map[string]LinkResponse{"link": h.toLinkResponse(link)})
}

// DeleteLink handles DELETE /api/share/{id}.
func (h *Handler) DeleteLink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.requestLogger(r)

	owner, id, ok := h.ownerAndID(w, r)
	if !ok {
		return
	}
	logger = logger.With("link_id", id.String())

	if err := h.service.Delete(ctx, owner, id); err != nil {
		h.handleOwnerError(ctx, w, logger, err, owner)
		return
	}

	logger.InfoContext(ctx, "link deleted")
	httpx.WriteJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

// LinkAnalytics handles GET /api/share/{id}/analytics.
func (h *Handler) LinkAnalytics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.requestLogger(r)

	owner, id, ok := h.ownerAndID(w, r)
	if !ok {
		return
	}
	logger = logger.With("link_id", id.String())

	report, err := h.service.Analytics(ctx, owner, id)
	if err != nil {
		h.handleOwnerError(ctx, w, logger, err, owner)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, AnalyticsResponse{
		Link: h.toLinkResponse(report.Link),
		Analytics: lo.Map(report.Records, func(rec AccessRecord, _ int) AccessRecordResponse {
			return AccessRecordResponse{
				ViewerHash: rec.ViewerHash,
				Referrer:   rec.Referrer,
				UserAgent:  rec.UserAgent,
				ViewedAt:   rec.ViewedAt,
			}
		}),
		Summary: SummaryResponse{
			TotalViews:       report.Summary.TotalViews,
			AnalyticsRecords: report.Summary.RecordCount,
		},
	})
}

func (h *Handler) ownerAndID(w http.ResponseWriter, r *http.Request) (uuid.UUID, uuid.UUID, bool) {
	owner, ok := auth.OwnerFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "authentication required", nil)
		return uuid.Nil, uuid.Nil, false
	}
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httpx.WriteError(w, http.StatusNotFound, "not_found", "link not found", nil)
		return uuid.Nil, uuid.Nil, false
	}
	return owner, id, true
}

func (h *Handler) toLinkResponse(l Link) LinkResponse {
	return LinkResponse{
		ID:           l.ID.String(),
		Token:        l.Token,
		ShareURL:     fmt.Sprintf("%s/api/share/%s", h.baseURL, l.Token),
		Title:        l.Title,
		Description:  l.Description,
		Content:      l.Content,
		ContentType:  l.ContentType,
		ExpiresAt:    l.ExpiresAt,
		MaxViews:     l.MaxViews,
		CurrentViews: l.CurrentViews,
		HasPassword:  l.HasPassword(),
		IsActive:     l.IsActive,
		CreatedAt:    l.CreatedAt,
		UpdatedAt:    l.UpdatedAt,
	}
}

func (b UpdateLinkBody) toRequest() (UpdateLinkRequest, error) {
	if b.Title.Set && b.Title.Null {
		return UpdateLinkRequest{}, fieldErr("title", "cannot be null")
	}
	if b.IsActive.Set && b.IsActive.Null {
		return UpdateLinkRequest{}, fieldErr("is_active", "cannot be null")
	}

	req := UpdateLinkRequest{
		Title:          b.Title.Ptr(),
		ExpiresAt:      b.ExpiresAt.Ptr(),
		ClearExpiresAt: b.ExpiresAt.Null,
		MaxViews:       b.MaxViews.Ptr(),
		ClearMaxViews:  b.MaxViews.Null,
		IsActive:       b.IsActive.Ptr(),
		Password:       b.Password.Ptr(),
		ClearPassword:  b.Password.Null,
	}
	if b.Description.Set {
		// A null description is the same as an empty one.
		desc := b.Description.Value
		req.Description = &desc
	}
	// An empty password removes protection, matching the create semantics.
	if req.Password != nil && *req.Password == "" {
		req.Password = nil
		req.ClearPassword = true
	}
	return req, nil
}

// handleReadError renders gate denials. Not found, disabled and expired
// share one response.
func (h *Handler) handleReadError(ctx context.Context, w http.ResponseWriter, logger *slog.Logger, err error) {
	kind := errx.KindOf(err)
	reason, denied := ReasonOf(err)

	if denied {
		logger.InfoContext(ctx, "link read denied", "reason", string(reason))
	}

	switch {
	case kind == errx.NotFound:
		httpx.WriteError(w, http.StatusNotFound, "not_found", "link not found", nil)

	case reason == ReasonViewLimitExceeded:
		httpx.WriteError(w, http.StatusForbidden, string(reason), "view limit exceeded", nil)

	case reason == ReasonPasswordRequired:
		httpx.WriteJSON(w, http.StatusUnauthorized, passwordErrorResponse{
			ErrorResponse:    httpx.ErrorResponse{Error: string(reason), Message: "password required"},
			RequiresPassword: true,
		})

	case reason == ReasonPasswordIncorrect:
		httpx.WriteError(w, http.StatusUnauthorized, string(reason), "incorrect password", nil)

	case reason == ReasonTooManyAttempts:
		httpx.SetRetryAfter(w, time.Minute)
		httpx.WriteError(w, http.StatusTooManyRequests, string(reason), "too many password attempts", nil)

	default:
		logger.ErrorContext(ctx, "link read failed",
			"error", err.Error(),
			"error_kind", kind,
			"operation", errx.OpOf(err),
		)
		httpx.WriteKindError(w, kind, "Unable to read this link at this time", nil)
	}
}

// handleOwnerError renders errors from owner operations.
func (h *Handler) handleOwnerError(ctx context.Context, w http.ResponseWriter, logger *slog.Logger, err error, owner uuid.UUID) {
	kind := errx.KindOf(err)

	logAttrs := []any{
		"error", err.Error(),
		"error_kind", kind,
		"operation", errx.OpOf(err),
	}

	switch kind {
	case errx.Invalid:
		logger.InfoContext(ctx, "invalid link request", logAttrs...)
		var fe *FieldError
		if errors.As(err, &fe) {
			httpx.WriteError(w, http.StatusBadRequest, "validation_failed", fe.Error(),
				httpx.FieldDetail{Field: fe.Field, Reason: fe.Message})
			return
		}
		httpx.WriteError(w, http.StatusBadRequest, "validation_failed", "invalid request", nil)

	case errx.NotFound:
		logger.InfoContext(ctx, "link not found", logAttrs...)
		httpx.WriteError(w, http.StatusNotFound, "not_found", "link not found", nil)

	case errx.Permission:
		logger.WarnContext(ctx, "owner mismatch", append(logAttrs, "owner_id", owner.String())...)
		httpx.WriteError(w, http.StatusNotFound, "not_found", "link not found", nil)

	case errx.Unauthorized:
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "authentication required", nil)

	case errx.Unavailable:
		logger.ErrorContext(ctx, "service unavailable", logAttrs...)
		httpx.WriteError(w, http.StatusServiceUnavailable, "unavailable",
			"Unable to complete the request at this time. Please try again.", nil)

	default:
		logger.ErrorContext(ctx, "unexpected error", logAttrs...)
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error",
			"Unable to complete the request at this time. Please try again.", nil)
	}
}
