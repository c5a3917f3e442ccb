package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ilyavolkov/linkly/internal/database"
	"github.com/ilyavolkov/linkly/internal/models"
)

type linkRecord struct {
	ID        string       `db:"id"`
	Slug      string       `db:"slug"`
	URL       string       `db:"url"`
	Active    bool         `db:"active"`
	ExpiresAt sql.NullTime `db:"expires_at"`
	CreatedAt time.Time    `db:"created_at"`
}

func (r *linkRecord) ToLink() *models.Link {
	link := &models.Link{
		ID:        r.ID,
		Slug:      r.Slug,
		URL:       r.URL,
		Active:    r.Active,
		CreatedAt: r.CreatedAt,
	}

	if r.ExpiresAt.Valid {
		expiresAt := r.ExpiresAt.Time
		link.ExpiresAt = &expiresAt
	}

	return link
}

type LinkRepository struct {
	db *sqlx.DB
}

func NewLinkRepository(db *sqlx.DB) *LinkRepository {
	return &LinkRepository{
		db: db,
	}
}

// Create inserts a new link. Uniqueness of the slug is enforced by the
// UNIQUE constraint on the table, never by a preceding read.
func (r *LinkRepository) Create(ctx context.Context, id, slug, url string) (*models.Link, error) {
	const op = "database.postgres.LinkRepository.Create"

	rec := new(linkRecord)
	query := `INSERT INTO links(id, slug, url)
		VALUES ($1, $2, $3)
		RETURNING *`

	err := r.db.GetContext(ctx, rec, query, id, slug, url)
	if err != nil {
		if isUniqueViolationError(err) {
			return nil, fmt.Errorf("%s: %w", op, database.ErrSlugExists)
		}

		return nil, fmt.Errorf("%s: failed to create link record: %w", op, err)
	}

	return rec.ToLink(), nil
}

// FindActiveBySlug returns the link for slug only if it is active and not
// expired at the given instant. The whole eligibility check is one filtered
// read, so interleaved reads around an expiry boundary cannot disagree
// within a request.
func (r *LinkRepository) FindActiveBySlug(ctx context.Context, slug string, now time.Time) (*models.Link, error) {
	const op = "database.postgres.LinkRepository.FindActiveBySlug"

	rec := new(linkRecord)
	query := `SELECT * FROM links
		WHERE slug = $1
			AND active
			AND (expires_at IS NULL OR expires_at > $2)`

	err := r.db.GetContext(ctx, rec, query, slug, now)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%s: %w", op, database.ErrLinkNotFound)
		}

		return nil, fmt.Errorf("%s: failed to find link record: %w", op, err)
	}

	return rec.ToLink(), nil
}

type clickEventRecord struct {
	ID        string         `db:"id"`
	LinkID    string         `db:"link_id"`
	IPHash    sql.NullString `db:"ip_hash"`
	UserAgent sql.NullString `db:"user_agent"`
	Referer   sql.NullString `db:"referer"`
	Country   sql.NullString `db:"country"`
	CreatedAt time.Time      `db:"created_at"`
}

func (r *clickEventRecord) ToClickEvent() *models.ClickEvent {
	return &models.ClickEvent{
		ID:        r.ID,
		LinkID:    r.LinkID,
		IPHash:    r.IPHash.String,
		UserAgent: r.UserAgent.String,
		Referer:   r.Referer.String,
		Country:   r.Country.String,
		CreatedAt: r.CreatedAt,
	}
}

type ClickEventRepository struct {
	db *sqlx.DB
}

func NewClickEventRepository(db *sqlx.DB) *ClickEventRepository {
	return &ClickEventRepository{
		db: db,
	}
}

// Create appends one click event. Absent metadata is stored as NULL, not as
// an empty string.
func (r *ClickEventRepository) Create(ctx context.Context, event models.ClickEvent) (*models.ClickEvent, error) {
	const op = "database.postgres.ClickEventRepository.Create"

	rec := new(clickEventRecord)
	query := `INSERT INTO click_events(id, link_id, ip_hash, user_agent, referer, country)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING *`

	err := r.db.GetContext(ctx, rec, query,
		event.ID,
		event.LinkID,
		nullString(event.IPHash),
		nullString(event.UserAgent),
		nullString(event.Referer),
		nullString(event.Country),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create click event record: %w", op, err)
	}

	return rec.ToClickEvent(), nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
