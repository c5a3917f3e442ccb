package slug

import (
	"errors"
	"regexp"
)

// MaxLength is the maximum number of characters a slug may contain.
const MaxLength = 40

var (
	// ErrEmpty is returned when the candidate slug is an empty string.
	ErrEmpty = errors.New("slug is empty")
	// ErrTooLong is returned when the candidate slug exceeds MaxLength.
	ErrTooLong = errors.New("slug is too long")
	// ErrInvalidChars is returned when the candidate slug contains characters
	// outside the allowed set of lowercase letters, digits and hyphens.
	ErrInvalidChars = errors.New("slug contains invalid characters")
	// ErrReserved is returned when the candidate slug collides with a fixed
	// system route.
	ErrReserved = errors.New("slug is reserved")
)

var slugPattern = regexp.MustCompile(`^[a-z0-9-]+$`)

// reserved covers routes the redirect resolver must never shadow: the API
// namespace and static paths served from the root.
var reserved = map[string]struct{}{
	"api":         {},
	"ping":        {},
	"static":      {},
	"assets":      {},
	"favicon.ico": {},
	"robots.txt":  {},
	"sitemap.xml": {},
}

// Validate checks the shape of a candidate slug and whether it collides with
// a reserved route. It is pure and performs no I/O. The character-class and
// reserved-word checks are independent; both must pass.
func Validate(s string) error {
	switch {
	case s == "":
		return ErrEmpty
	case len(s) > MaxLength:
		return ErrTooLong
	case !slugPattern.MatchString(s):
		return ErrInvalidChars
	}

	if IsReserved(s) {
		return ErrReserved
	}

	return nil
}

// IsReserved reports whether s is in the reserved-word set.
func IsReserved(s string) bool {
	_, ok := reserved[s]
	return ok
}
