package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/ilyavolkov/linkly/internal/database"
	"github.com/ilyavolkov/linkly/internal/models"
	"github.com/ilyavolkov/linkly/internal/slug"
)

type MockLinkRepository struct {
	mock.Mock
}

func (r *MockLinkRepository) Create(ctx context.Context, id, slug, url string) (*models.Link, error) {
	args := r.Called(ctx, id, slug, url)
	link, _ := args.Get(0).(*models.Link)
	return link, args.Error(1)
}

func (r *MockLinkRepository) FindActiveBySlug(ctx context.Context, slug string, now time.Time) (*models.Link, error) {
	args := r.Called(ctx, slug, now)
	link, _ := args.Get(0).(*models.Link)
	return link, args.Error(1)
}

type MockClickEventRepository struct {
	mock.Mock
}

func (r *MockClickEventRepository) Create(ctx context.Context, event models.ClickEvent) (*models.ClickEvent, error) {
	args := r.Called(ctx, event)
	created, _ := args.Get(0).(*models.ClickEvent)
	return created, args.Error(1)
}

type LinkServiceTestSuite struct {
	suite.Suite
	errUnknown    error
	logger        *slog.Logger
	linkRepoMock  *MockLinkRepository
	clickRepoMock *MockClickEventRepository
	svc           *LinkService
}

func (suite *LinkServiceTestSuite) SetupSuite() {
	suite.errUnknown = errors.New("unknown error")
	suite.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
}

func (suite *LinkServiceTestSuite) SetupSubTest() {
	suite.linkRepoMock = new(MockLinkRepository)
	suite.clickRepoMock = new(MockClickEventRepository)
	suite.svc = NewLinkService(suite.linkRepoMock, suite.clickRepoMock, suite.logger)
}

func (suite *LinkServiceTestSuite) TearDownSubTest() {
	suite.linkRepoMock.AssertExpectations(suite.T())
	suite.clickRepoMock.AssertExpectations(suite.T())
}

func (suite *LinkServiceTestSuite) TestCreateLink() {
	suite.Run("invalid slug", func() {
		link, err := suite.svc.CreateLink(context.Background(), "https://example.com", "Bad Slug")

		suite.Error(err)
		suite.ErrorIs(err, slug.ErrInvalidChars)
		suite.Nil(link)
		suite.linkRepoMock.AssertNotCalled(suite.T(), "Create")
	})

	suite.Run("reserved slug", func() {
		link, err := suite.svc.CreateLink(context.Background(), "https://example.com", "api")

		suite.Error(err)
		suite.ErrorIs(err, slug.ErrReserved)
		suite.Nil(link)
		suite.linkRepoMock.AssertNotCalled(suite.T(), "Create")
	})

	suite.Run("invalid url", func() {
		link, err := suite.svc.CreateLink(context.Background(), "https://", "abc")

		suite.Error(err)
		suite.ErrorIs(err, ErrInvalidURL)
		suite.Nil(link)
		suite.linkRepoMock.AssertNotCalled(suite.T(), "Create")
	})

	suite.Run("scheme is prepended", func() {
		suite.linkRepoMock.
			On("Create", mock.Anything, mock.Anything, "abc", "https://example.com").
			Once().
			Return(&models.Link{Slug: "abc", URL: "https://example.com", Active: true}, nil)

		link, err := suite.svc.CreateLink(context.Background(), "example.com", "abc")

		suite.NoError(err)
		suite.NotNil(link)
		suite.Equal("https://example.com", link.URL)
	})

	suite.Run("explicit scheme is preserved", func() {
		suite.linkRepoMock.
			On("Create", mock.Anything, mock.Anything, "abc", "http://example.com").
			Once().
			Return(&models.Link{Slug: "abc", URL: "http://example.com", Active: true}, nil)

		link, err := suite.svc.CreateLink(context.Background(), "http://example.com", "abc")

		suite.NoError(err)
		suite.NotNil(link)
		suite.Equal("http://example.com", link.URL)
	})

	suite.Run("slug conflict", func() {
		suite.linkRepoMock.
			On("Create", mock.Anything, mock.Anything, "abc", "https://example.com").
			Once().
			Return(nil, database.ErrSlugExists)

		link, err := suite.svc.CreateLink(context.Background(), "https://example.com", "abc")

		suite.Error(err)
		suite.ErrorIs(err, database.ErrSlugExists)
		suite.Nil(link)
	})

	suite.Run("unknown error", func() {
		suite.linkRepoMock.
			On("Create", mock.Anything, mock.Anything, "abc", "https://example.com").
			Once().
			Return(nil, suite.errUnknown)

		link, err := suite.svc.CreateLink(context.Background(), "https://example.com", "abc")

		suite.Error(err)
		suite.ErrorIs(err, suite.errUnknown)
		suite.Nil(link)
	})

	suite.Run("success", func() {
		suite.linkRepoMock.
			On("Create", mock.Anything, mock.Anything, "abc", "https://example.com").
			Once().
			Return(&models.Link{ID: "id1", Slug: "abc", URL: "https://example.com", Active: true}, nil)

		link, err := suite.svc.CreateLink(context.Background(), "https://example.com", "abc")

		suite.NoError(err)
		suite.NotNil(link)
		suite.Equal("id1", link.ID)
	})
}

func (suite *LinkServiceTestSuite) TestResolveSlug() {
	meta := models.ClickMeta{
		IP:        "203.0.113.7",
		UserAgent: "agent",
		Referer:   "https://ref.example",
		Country:   "DE",
	}

	suite.Run("link not found", func() {
		suite.linkRepoMock.
			On("FindActiveBySlug", mock.Anything, "missing", mock.Anything).
			Once().
			Return(nil, database.ErrLinkNotFound)

		link, err := suite.svc.ResolveSlug(context.Background(), "missing", meta)

		suite.Error(err)
		suite.ErrorIs(err, database.ErrLinkNotFound)
		suite.Nil(link)
		suite.clickRepoMock.AssertNotCalled(suite.T(), "Create")
	})

	suite.Run("unknown error", func() {
		suite.linkRepoMock.
			On("FindActiveBySlug", mock.Anything, "abc", mock.Anything).
			Once().
			Return(nil, suite.errUnknown)

		link, err := suite.svc.ResolveSlug(context.Background(), "abc", meta)

		suite.Error(err)
		suite.ErrorIs(err, suite.errUnknown)
		suite.Nil(link)
		suite.clickRepoMock.AssertNotCalled(suite.T(), "Create")
	})

	suite.Run("click event references the resolved link", func() {
		suite.linkRepoMock.
			On("FindActiveBySlug", mock.Anything, "abc", mock.Anything).
			Once().
			Return(&models.Link{ID: "id1", Slug: "abc", URL: "https://example.com", Active: true}, nil)

		suite.clickRepoMock.
			On("Create", mock.Anything, mock.MatchedBy(func(event models.ClickEvent) bool {
				return event.LinkID == "id1" &&
					event.ID != "" &&
					event.IPHash == HashIP("203.0.113.7") &&
					event.UserAgent == "agent" &&
					event.Referer == "https://ref.example" &&
					event.Country == "DE"
			})).
			Once().
			Return(&models.ClickEvent{ID: "ev1", LinkID: "id1"}, nil)

		link, err := suite.svc.ResolveSlug(context.Background(), "abc", meta)

		suite.NoError(err)
		suite.NotNil(link)
		suite.Equal("https://example.com", link.URL)
	})

	suite.Run("absent ip yields no hash", func() {
		suite.linkRepoMock.
			On("FindActiveBySlug", mock.Anything, "abc", mock.Anything).
			Once().
			Return(&models.Link{ID: "id1", Slug: "abc", URL: "https://example.com", Active: true}, nil)

		suite.clickRepoMock.
			On("Create", mock.Anything, mock.MatchedBy(func(event models.ClickEvent) bool {
				return event.IPHash == ""
			})).
			Once().
			Return(&models.ClickEvent{ID: "ev1", LinkID: "id1"}, nil)

		link, err := suite.svc.ResolveSlug(context.Background(), "abc", models.ClickMeta{UserAgent: "agent"})

		suite.NoError(err)
		suite.NotNil(link)
	})

	suite.Run("recording failure does not fail resolution", func() {
		suite.linkRepoMock.
			On("FindActiveBySlug", mock.Anything, "abc", mock.Anything).
			Once().
			Return(&models.Link{ID: "id1", Slug: "abc", URL: "https://example.com", Active: true}, nil)

		suite.clickRepoMock.
			On("Create", mock.Anything, mock.Anything).
			Once().
			Return(nil, suite.errUnknown)

		link, err := suite.svc.ResolveSlug(context.Background(), "abc", meta)

		suite.NoError(err)
		suite.NotNil(link)
		suite.Equal("https://example.com", link.URL)
	})

	suite.Run("async recording", func() {
		svc := NewLinkService(suite.linkRepoMock, suite.clickRepoMock, suite.logger,
			WithAsyncRecording(time.Second))

		recorded := make(chan struct{})

		suite.linkRepoMock.
			On("FindActiveBySlug", mock.Anything, "abc", mock.Anything).
			Once().
			Return(&models.Link{ID: "id1", Slug: "abc", URL: "https://example.com", Active: true}, nil)

		suite.clickRepoMock.
			On("Create", mock.Anything, mock.Anything).
			Once().
			Run(func(args mock.Arguments) {
				close(recorded)
			}).
			Return(&models.ClickEvent{ID: "ev1", LinkID: "id1"}, nil)

		link, err := svc.ResolveSlug(context.Background(), "abc", meta)

		suite.NoError(err)
		suite.NotNil(link)

		select {
		case <-recorded:
		case <-time.After(time.Second):
			suite.Fail("click event was not recorded")
		}
	})
}

func TestLinkServiceTestSuite(t *testing.T) {
	suite.Run(t, new(LinkServiceTestSuite))
}

func TestHashIP(t *testing.T) {
	hash1 := HashIP("203.0.113.7")
	hash2 := HashIP("203.0.113.7")
	hash3 := HashIP("203.0.113.8")

	assert.Equal(t, hash1, hash2)
	assert.NotEqual(t, hash1, hash3)
	assert.Len(t, hash1, 64)
	assert.NotContains(t, hash1, "203.0.113.7")
}

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{
			name: "bare host",
			raw:  "example.com",
			want: "https://example.com",
		},
		{
			name: "bare host with path",
			raw:  "example.com/some/path?q=1",
			want: "https://example.com/some/path?q=1",
		},
		{
			name: "http scheme preserved",
			raw:  "http://example.com",
			want: "http://example.com",
		},
		{
			name: "https scheme preserved",
			raw:  "https://example.com",
			want: "https://example.com",
		},
		{
			name: "uppercase scheme preserved",
			raw:  "HTTP://example.com",
			want: "HTTP://example.com",
		},
		{
			name:    "empty",
			raw:     "",
			wantErr: true,
		},
		{
			name:    "scheme without host",
			raw:     "https://",
			wantErr: true,
		},
		{
			name:    "unparseable",
			raw:     "https://exa mple.com",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := normalizeURL(tt.raw)

			if tt.wantErr {
				assert.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidURL)
				return
			}

			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
