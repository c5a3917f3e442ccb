package http

import (
	"context"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v2"
	"github.com/go-playground/validator/v10"

	"github.com/ilyavolkov/linkly/internal/models"
)

// LinkService defines the interface for the core link creation and slug
// resolution business logic.
type LinkService interface {
	// CreateLink validates and stores a new slug to URL mapping.
	// It returns the created link or an error attributable to the slug, the
	// URL, or a slug conflict.
	CreateLink(ctx context.Context, rawURL, rawSlug string) (*models.Link, error)

	// ResolveSlug returns the eligible link for slug and records a click
	// event for it, or database.ErrLinkNotFound when the slug is unknown,
	// inactive or expired.
	ResolveSlug(ctx context.Context, slug string, meta models.ClickMeta) (*models.Link, error)
}

// Options carries the request-independent knobs the handlers need.
type Options struct {
	// FallbackURL is where ineligible redirects are sent.
	FallbackURL string
	// GeoCountryHeader names the header the hosting edge uses to pass the
	// requester's country.
	GeoCountryHeader string
}

// getValidate initializes a new validator instance for validating incoming request payloads.
// It customizes tag name extraction from struct fields to match JSON tags.
func getValidate() *validator.Validate {
	validate := validator.New()

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return validate
}

// NewRouter initializes and returns a new HTTP router with all routes and middleware configured.
func NewRouter(logger *httplog.Logger, linkSvc LinkService, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httplog.RequestLogger(logger))
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"https://*"},
			AllowedMethods:   []string{"POST", "GET", "OPTIONS"},
			AllowedHeaders:   []string{"Content-Type", "Accept"},
			AllowCredentials: false,
			MaxAge:           84600,
		}))
		r.Use(middleware.AllowContentType("application/json"))

		validate := getValidate()

		r.Get("/ping", handlePing)
		r.Post("/links", handleCreateLink(linkSvc, validate))
	})

	r.Get("/{slug}", handleRedirect(linkSvc, opts))

	return r
}
