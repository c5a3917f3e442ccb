package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/ilyavolkov/linkly/internal/models"
	"github.com/ilyavolkov/linkly/internal/slug"
)

// ErrInvalidURL is returned when the destination URL cannot be parsed as an
// absolute URL after normalization.
var ErrInvalidURL = errors.New("invalid url")

// LinkRepository defines the interface for working with links at the business logic layer.
type LinkRepository interface {
	// Create inserts a new link. The slug uniqueness constraint is enforced
	// atomically by the store; a violation surfaces as database.ErrSlugExists.
	Create(ctx context.Context, id, slug, url string) (*models.Link, error)

	// FindActiveBySlug retrieves the link for slug if it is active and not
	// expired at the given instant, or database.ErrLinkNotFound otherwise.
	FindActiveBySlug(ctx context.Context, slug string, now time.Time) (*models.Link, error)
}

// ClickEventRepository defines the interface for appending click events.
type ClickEventRepository interface {
	Create(ctx context.Context, event models.ClickEvent) (*models.ClickEvent, error)
}

// LinkService provides the link creation and slug resolution operations.
type LinkService struct {
	links         LinkRepository
	clicks        ClickEventRepository
	logger        *slog.Logger
	asyncClicks   bool
	recordTimeout time.Duration
}

type Option func(*LinkService)

// WithAsyncRecording detaches click-event writes from the redirect request.
// Each write runs on its own context bounded by timeout, so analytics stops
// adding store latency to redirects at the cost of a wider at-most-once
// window.
func WithAsyncRecording(timeout time.Duration) Option {
	return func(s *LinkService) {
		s.asyncClicks = true
		s.recordTimeout = timeout
	}
}

// NewLinkService creates a new LinkService on top of the provided repositories.
func NewLinkService(links LinkRepository, clicks ClickEventRepository, logger *slog.Logger, opts ...Option) *LinkService {
	s := &LinkService{
		links:         links,
		clicks:        clicks,
		logger:        logger,
		recordTimeout: 5 * time.Second,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// CreateLink validates the slug, normalizes the destination URL and inserts
// the mapping. No partial writes: every failure path returns before the
// insert, and the insert itself is atomic.
func (s *LinkService) CreateLink(ctx context.Context, rawURL, rawSlug string) (*models.Link, error) {
	const op = "service.LinkService.CreateLink"

	if err := slug.Validate(rawSlug); err != nil {
		return nil, fmt.Errorf("%s: invalid slug: %w", op, err)
	}

	normalized, err := normalizeURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	id, err := gonanoid.New()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to generate link id: %w", op, err)
	}

	link, err := s.links.Create(ctx, id, rawSlug, normalized)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create link: %w", op, err)
	}

	return link, nil
}

// ResolveSlug looks up an eligible link for the slug and records a click
// event for it. Recording failures are logged and never alter the
// resolution result; an ineligible slug yields database.ErrLinkNotFound
// and no event.
func (s *LinkService) ResolveSlug(ctx context.Context, slugValue string, meta models.ClickMeta) (*models.Link, error) {
	const op = "service.LinkService.ResolveSlug"

	link, err := s.links.FindActiveBySlug(ctx, slugValue, time.Now())
	if err != nil {
		return nil, fmt.Errorf("%s: failed to resolve slug: %w", op, err)
	}

	if s.asyncClicks {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), s.recordTimeout)
			defer cancel()
			s.recordClick(ctx, link.ID, meta)
		}()
	} else {
		s.recordClick(ctx, link.ID, meta)
	}

	return link, nil
}

func (s *LinkService) recordClick(ctx context.Context, linkID string, meta models.ClickMeta) {
	const op = "service.LinkService.recordClick"

	event := models.ClickEvent{
		LinkID:    linkID,
		UserAgent: meta.UserAgent,
		Referer:   meta.Referer,
		Country:   meta.Country,
	}

	// An absent IP yields no hash at all, never a hash of "".
	if meta.IP != "" {
		event.IPHash = HashIP(meta.IP)
	}

	id, err := gonanoid.New()
	if err != nil {
		s.logger.Error("failed to record click event",
			slog.Group(op, slog.String("link_id", linkID), slog.Any("err", err)))
		return
	}
	event.ID = id

	if _, err := s.clicks.Create(ctx, event); err != nil {
		s.logger.Error("failed to record click event",
			slog.Group(op, slog.String("link_id", linkID), slog.Any("err", err)))
	}
}

// HashIP returns the fixed one-way digest of a requester's network address.
// The same input always yields the same hash; the raw address is never
// persisted.
func HashIP(ip string) string {
	sum := sha256.Sum256([]byte(ip))
	return hex.EncodeToString(sum[:])
}

var schemePattern = regexp.MustCompile(`(?i)^https?://`)

// normalizeURL prepends https:// when no explicit http(s) scheme is present,
// then requires the result to parse as an absolute URL with a host. The URL
// is stored as typed, not re-serialized.
func normalizeURL(raw string) (string, error) {
	if raw == "" {
		return "", ErrInvalidURL
	}

	if !schemePattern.MatchString(raw) {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return "", ErrInvalidURL
	}

	return raw, nil
}
