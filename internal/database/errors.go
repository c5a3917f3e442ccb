package database

import "errors"

var (
	// ErrSlugExists is returned when an attempt is made to create
	// a link with a slug that is already taken.
	ErrSlugExists = errors.New("slug exists")
	// ErrLinkNotFound is returned when no eligible link exists for
	// a slug: it is unknown, inactive or expired.
	ErrLinkNotFound = errors.New("link not found")
)
