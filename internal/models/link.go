package models

import "time"

// Link represents a slug to destination URL mapping and its associated metadata.
type Link struct {
	// ID is the opaque unique identifier for the link record.
	ID string
	// Slug is the short path segment the link is resolved by. It is unique
	// across all links, including inactive and expired ones.
	Slug string
	// URL is the absolute destination URL. A scheme is always present.
	URL string
	// Active is a soft-disable flag, independent of expiration.
	Active bool
	// ExpiresAt is the optional expiration time. A nil value means the link
	// never expires.
	ExpiresAt *time.Time
	// CreatedAt is the timestamp indicating when the link was created.
	CreatedAt time.Time
}

// ClickEvent is an immutable analytics record of one successful resolution.
// Optional metadata fields are empty strings when absent; the requester's
// network address is never stored raw, only as IPHash.
type ClickEvent struct {
	ID        string
	LinkID    string
	IPHash    string
	UserAgent string
	Referer   string
	Country   string
	CreatedAt time.Time
}

// ClickMeta carries the request metadata captured at the edge for click
// recording. Any field may be empty.
type ClickMeta struct {
	IP        string
	UserAgent string
	Referer   string
	Country   string
}
