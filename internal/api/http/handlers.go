package http

import (
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httplog/v2"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"github.com/ilyavolkov/linkly/internal/database"
	"github.com/ilyavolkov/linkly/internal/models"
	"github.com/ilyavolkov/linkly/internal/service"
	"github.com/ilyavolkov/linkly/internal/slug"
	"github.com/ilyavolkov/linkly/pkg/response"
)

// handlePing handles health check requests to ensure the server is running.
func handlePing(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "pong")
}

// linkRequest represents the request payload for creating a link.
type linkRequest struct {
	URL  string `json:"url" validate:"required"`
	Slug string `json:"slug" validate:"required"`
}

// linkResponse represents the response payload for a created link.
type linkResponse struct {
	Link linkData `json:"link"`
}

type linkData struct {
	ID   string `json:"id"`
	Slug string `json:"slug"`
	URL  string `json:"url"`
}

func toLinkResponse(link *models.Link) linkResponse {
	return linkResponse{
		Link: linkData{
			ID:   link.ID,
			Slug: link.Slug,
			URL:  link.URL,
		},
	}
}

// handleCreateLink handles POST requests to create a slug to URL mapping.
//
// Validation failures are attributed to the offending field; a slug taken
// by an existing link yields 409 so the caller can attribute the conflict
// to the slug specifically.
func handleCreateLink(svc LinkService, validate *validator.Validate) http.HandlerFunc {
	const op = "api.http.handleCreateLink"

	return func(w http.ResponseWriter, r *http.Request) {
		var req linkRequest

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			if errors.Is(err, io.EOF) {
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, response.EmptyRequestBodyResponse)
				return
			}

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.BadRequestResponse)
			return
		}

		if err := validate.Struct(req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.ValidationErrorResponse(err))
			return
		}

		link, err := svc.CreateLink(r.Context(), req.URL, req.Slug)
		if err != nil {
			if issue, ok := validationIssue(err); ok {
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, response.InvalidDataResponse(issue))
				return
			}

			if errors.Is(err, database.ErrSlugExists) {
				render.Status(r, http.StatusConflict)
				render.JSON(w, r, response.SlugConflictResponse)
				return
			}

			httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.ServerErrorResponse)
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, toLinkResponse(link))
	}
}

// validationIssue maps slug and URL validation failures to the field they
// belong to. Any other error is not a validation failure.
func validationIssue(err error) (response.Issue, bool) {
	switch {
	case errors.Is(err, slug.ErrEmpty):
		return response.Issue{Field: "slug", Message: "Please choose a slug."}, true
	case errors.Is(err, slug.ErrTooLong):
		return response.Issue{Field: "slug", Message: "Slug is too long."}, true
	case errors.Is(err, slug.ErrInvalidChars):
		return response.Issue{Field: "slug", Message: "Only lowercase letters, numbers, and hyphens are allowed."}, true
	case errors.Is(err, slug.ErrReserved):
		return response.Issue{Field: "slug", Message: "This slug is reserved. Please choose another one."}, true
	case errors.Is(err, service.ErrInvalidURL):
		return response.Issue{Field: "url", Message: "Please enter a valid URL."}, true
	}

	return response.Issue{}, false
}

// handleRedirect handles GET requests for a slug.
//
// An eligible slug redirects to its destination after a click event is
// triggered for it. Anything ineligible degrades to a redirect to the
// fallback destination: a broken short link never exposes an error page.
func handleRedirect(svc LinkService, opts Options) http.HandlerFunc {
	const op = "api.http.handleRedirect"

	return func(w http.ResponseWriter, r *http.Request) {
		slugValue := chi.URLParam(r, "slug")

		if err := slug.Validate(slugValue); err != nil {
			http.Redirect(w, r, opts.FallbackURL, http.StatusTemporaryRedirect)
			return
		}

		meta := models.ClickMeta{
			IP:        clientIP(r),
			UserAgent: r.UserAgent(),
			Referer:   r.Referer(),
			Country:   r.Header.Get(opts.GeoCountryHeader),
		}

		link, err := svc.ResolveSlug(r.Context(), slugValue, meta)
		if err != nil {
			if !errors.Is(err, database.ErrLinkNotFound) {
				httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})
			}

			http.Redirect(w, r, opts.FallbackURL, http.StatusTemporaryRedirect)
			return
		}

		http.Redirect(w, r, link.URL, http.StatusTemporaryRedirect)
	}
}

// clientIP returns the requester's address as left in RemoteAddr by the
// RealIP middleware, with the port stripped for direct connections.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}

	return r.RemoteAddr
}
