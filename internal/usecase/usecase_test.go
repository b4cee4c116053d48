package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"github.com/vadimbarashkov/shortener/internal/entity"
	"github.com/vadimbarashkov/shortener/mocks/usecase"
)

type URLUseCaseTestSuite struct {
	suite.Suite
	errUnknown  error
	urlRepoMock *usecase.MockUrlRepository
	uc          *URLUseCase
}

func (suite *URLUseCaseTestSuite) SetupSuite() {
	suite.errUnknown = errors.New("unknown error")
}

func (suite *URLUseCaseTestSuite) SetupSubTest() {
	suite.urlRepoMock = usecase.NewMockUrlRepository(suite.T())
	suite.uc = New(6, suite.urlRepoMock)
}

func (suite *URLUseCaseTestSuite) TearDownSubTest() {
	suite.urlRepoMock.AssertExpectations(suite.T())
}

// codes makes the use case generate the given codes in order.
func (suite *URLUseCaseTestSuite) codes(codes ...string) {
	i := 0
	suite.uc.generate = func(int) (string, error) {
		code := codes[i%len(codes)]
		i++
		return code, nil
	}
}

func (suite *URLUseCaseTestSuite) TestNew() {
	suite.Run("default length", func() {
		uc := New(0, suite.urlRepoMock)

		suite.Equal(6, uc.shortCodeLength)
	})

	suite.Run("configured length", func() {
		uc := New(9, suite.urlRepoMock)

		suite.Equal(9, uc.shortCodeLength)
	})
}

func (suite *URLUseCaseTestSuite) TestShortenURL() {
	suite.Run("invalid url", func() {
		url, err := suite.uc.ShortenURL(context.Background(), "not a url", "")

		suite.Error(err)
		suite.ErrorIs(err, entity.ErrInvalidURL)
		suite.Nil(url)
	})

	suite.Run("private host", func() {
		url, err := suite.uc.ShortenURL(context.Background(), "http://192.168.0.1/router", "github")

		suite.Error(err)
		suite.ErrorIs(err, entity.ErrInvalidURL)
		suite.Nil(url)
	})

	suite.Run("invalid custom code", func() {
		url, err := suite.uc.ShortenURL(context.Background(), "https://github.com", "ab")

		suite.Error(err)
		suite.ErrorIs(err, entity.ErrInvalidShortCode)
		suite.Nil(url)
	})

	suite.Run("reserved custom code", func() {
		url, err := suite.uc.ShortenURL(context.Background(), "https://github.com", "API")

		suite.Error(err)
		suite.ErrorIs(err, entity.ErrInvalidShortCode)
		suite.Nil(url)
	})

	suite.Run("custom code exists", func() {
		suite.urlRepoMock.
			On("RetrieveByShortCode", mock.Anything, "github").
			Once().
			Return(&entity.URL{ShortCode: "github", OriginalURL: "https://github.com"}, nil)

		url, err := suite.uc.ShortenURL(context.Background(), "https://example.com", "github")

		suite.Error(err)
		suite.ErrorIs(err, entity.ErrShortCodeExists)
		suite.Nil(url)
		suite.urlRepoMock.AssertNotCalled(suite.T(), "Save", mock.Anything, mock.Anything, mock.Anything)
	})

	suite.Run("custom code lookup error", func() {
		suite.urlRepoMock.
			On("RetrieveByShortCode", mock.Anything, "github").
			Once().
			Return(nil, suite.errUnknown)

		url, err := suite.uc.ShortenURL(context.Background(), "https://github.com", "github")

		suite.Error(err)
		suite.ErrorIs(err, suite.errUnknown)
		suite.Nil(url)
	})

	suite.Run("custom code taken concurrently", func() {
		suite.urlRepoMock.
			On("RetrieveByShortCode", mock.Anything, "github").
			Once().
			Return(nil, entity.ErrURLNotFound)
		suite.urlRepoMock.
			On("Save", mock.Anything, "github", "https://github.com").
			Once().
			Return(nil, entity.ErrShortCodeExists)

		url, err := suite.uc.ShortenURL(context.Background(), "https://github.com", "github")

		suite.Error(err)
		suite.ErrorIs(err, entity.ErrShortCodeExists)
		suite.Nil(url)
	})

	suite.Run("custom code success", func() {
		suite.urlRepoMock.
			On("RetrieveByShortCode", mock.Anything, "github").
			Once().
			Return(nil, entity.ErrURLNotFound)
		suite.urlRepoMock.
			On("Save", mock.Anything, "github", "https://github.com").
			Once().
			Return(&entity.URL{ID: 1, ShortCode: "github", OriginalURL: "https://github.com"}, nil)

		url, err := suite.uc.ShortenURL(context.Background(), "https://github.com/", "github")

		suite.NoError(err)
		suite.NotNil(url)
		suite.Equal("github", url.ShortCode)
		suite.Equal("https://github.com", url.OriginalURL)
		suite.Zero(url.ClickCount)
	})

	suite.Run("short code generation error", func() {
		suite.uc.shortCodeLength = -1
		suite.uc.generate = func(int) (string, error) {
			return "", suite.errUnknown
		}

		url, err := suite.uc.ShortenURL(context.Background(), "https://example.com", "")

		suite.Error(err)
		suite.ErrorIs(err, suite.errUnknown)
		suite.Nil(url)
	})

	suite.Run("lookup error", func() {
		suite.codes("aaaaaa")
		suite.urlRepoMock.
			On("RetrieveByShortCode", mock.Anything, "aaaaaa").
			Once().
			Return(nil, suite.errUnknown)

		url, err := suite.uc.ShortenURL(context.Background(), "https://example.com", "")

		suite.Error(err)
		suite.ErrorIs(err, suite.errUnknown)
		suite.Nil(url)
	})

	suite.Run("retries on taken code", func() {
		suite.codes("aaaaaa", "bbbbbb")
		suite.urlRepoMock.
			On("RetrieveByShortCode", mock.Anything, "aaaaaa").
			Once().
			Return(&entity.URL{ShortCode: "aaaaaa"}, nil)
		suite.urlRepoMock.
			On("RetrieveByShortCode", mock.Anything, "bbbbbb").
			Once().
			Return(nil, entity.ErrURLNotFound)
		suite.urlRepoMock.
			On("Save", mock.Anything, "bbbbbb", "https://example.com").
			Once().
			Return(&entity.URL{ShortCode: "bbbbbb", OriginalURL: "https://example.com"}, nil)

		url, err := suite.uc.ShortenURL(context.Background(), "https://example.com", "")

		suite.NoError(err)
		suite.NotNil(url)
		suite.Equal("bbbbbb", url.ShortCode)
	})

	suite.Run("retries when insert loses race", func() {
		suite.codes("aaaaaa", "bbbbbb")
		suite.urlRepoMock.
			On("RetrieveByShortCode", mock.Anything, mock.Anything).
			Twice().
			Return(nil, entity.ErrURLNotFound)
		suite.urlRepoMock.
			On("Save", mock.Anything, "aaaaaa", "https://example.com").
			Once().
			Return(nil, entity.ErrShortCodeExists)
		suite.urlRepoMock.
			On("Save", mock.Anything, "bbbbbb", "https://example.com").
			Once().
			Return(&entity.URL{ShortCode: "bbbbbb", OriginalURL: "https://example.com"}, nil)

		url, err := suite.uc.ShortenURL(context.Background(), "https://example.com", "")

		suite.NoError(err)
		suite.NotNil(url)
		suite.Equal("bbbbbb", url.ShortCode)
	})

	suite.Run("maximum retries error", func() {
		suite.codes("aaaaaa")
		suite.urlRepoMock.
			On("RetrieveByShortCode", mock.Anything, "aaaaaa").
			Times(maxRetries).
			Return(&entity.URL{ShortCode: "aaaaaa"}, nil)

		url, err := suite.uc.ShortenURL(context.Background(), "https://example.com", "")

		suite.Error(err)
		suite.ErrorIs(err, ErrMaxRetriesExceeded)
		suite.Nil(url)
		suite.urlRepoMock.AssertNotCalled(suite.T(), "Save", mock.Anything, mock.Anything, mock.Anything)
	})

	suite.Run("unknown error", func() {
		suite.urlRepoMock.
			On("RetrieveByShortCode", mock.Anything, mock.Anything).
			Once().
			Return(nil, entity.ErrURLNotFound)
		suite.urlRepoMock.
			On("Save", mock.Anything, mock.Anything, "https://example.com").
			Once().
			Return(nil, suite.errUnknown)

		url, err := suite.uc.ShortenURL(context.Background(), "https://example.com", "")

		suite.Error(err)
		suite.ErrorIs(err, suite.errUnknown)
		suite.Nil(url)
	})

	suite.Run("success", func() {
		suite.urlRepoMock.
			On("RetrieveByShortCode", mock.Anything, mock.Anything).
			Once().
			Return(nil, entity.ErrURLNotFound)
		suite.urlRepoMock.
			On("Save", mock.Anything, mock.MatchedBy(func(code string) bool { return len(code) == 6 }), "https://example.com").
			Once().
			Return(&entity.URL{
				ShortCode:   "abc123",
				OriginalURL: "https://example.com",
			}, nil)

		url, err := suite.uc.ShortenURL(context.Background(), "https://example.com", "")

		suite.NoError(err)
		suite.NotNil(url)
		suite.Equal("abc123", url.ShortCode)
		suite.Equal("https://example.com", url.OriginalURL)
		suite.Zero(url.ClickCount)
	})
}

func (suite *URLUseCaseTestSuite) TestResolveShortCode() {
	suite.Run("url not found", func() {
		suite.urlRepoMock.
			On("RetrieveAndUpdateStats", mock.Anything, "abc123").
			Once().
			Return(nil, entity.ErrURLNotFound)

		url, err := suite.uc.ResolveShortCode(context.Background(), "abc123")

		suite.Error(err)
		suite.ErrorIs(err, entity.ErrURLNotFound)
		suite.Nil(url)
	})

	suite.Run("success", func() {
		suite.urlRepoMock.
			On("RetrieveAndUpdateStats", mock.Anything, "abc123").
			Once().
			Return(&entity.URL{
				ShortCode:   "abc123",
				OriginalURL: "https://example.com",
				URLStats:    entity.URLStats{ClickCount: 1},
			}, nil)

		url, err := suite.uc.ResolveShortCode(context.Background(), "abc123")

		suite.NoError(err)
		suite.NotNil(url)
		suite.Equal("https://example.com", url.OriginalURL)
		suite.Equal(int64(1), url.ClickCount)
	})
}

func (suite *URLUseCaseTestSuite) TestGetURLStats() {
	suite.Run("unknown error", func() {
		suite.urlRepoMock.
			On("RetrieveByShortCode", mock.Anything, "abc123").
			Once().
			Return(nil, suite.errUnknown)

		url, err := suite.uc.GetURLStats(context.Background(), "abc123")

		suite.Error(err)
		suite.ErrorIs(err, suite.errUnknown)
		suite.Nil(url)
	})

	suite.Run("success", func() {
		suite.urlRepoMock.
			On("RetrieveByShortCode", mock.Anything, "abc123").
			Once().
			Return(&entity.URL{
				ShortCode:   "abc123",
				OriginalURL: "https://example.com",
				URLStats:    entity.URLStats{ClickCount: 3},
			}, nil)

		url, err := suite.uc.GetURLStats(context.Background(), "abc123")

		suite.NoError(err)
		suite.Equal(int64(3), url.ClickCount)
	})
}

func (suite *URLUseCaseTestSuite) TestGetURLByID() {
	suite.Run("url not found", func() {
		suite.urlRepoMock.
			On("RetrieveByID", mock.Anything, int64(42)).
			Once().
			Return(nil, entity.ErrURLNotFound)

		url, err := suite.uc.GetURLByID(context.Background(), 42)

		suite.ErrorIs(err, entity.ErrURLNotFound)
		suite.Nil(url)
	})

	suite.Run("success", func() {
		suite.urlRepoMock.
			On("RetrieveByID", mock.Anything, int64(42)).
			Once().
			Return(&entity.URL{ID: 42, ShortCode: "abc123"}, nil)

		url, err := suite.uc.GetURLByID(context.Background(), 42)

		suite.NoError(err)
		suite.Equal(int64(42), url.ID)
	})
}

func (suite *URLUseCaseTestSuite) TestListURLs() {
	suite.Run("unknown error", func() {
		suite.urlRepoMock.
			On("List", mock.Anything, 10, 0).
			Once().
			Return(nil, suite.errUnknown)

		page, err := suite.uc.ListURLs(context.Background(), 1, 10)

		suite.ErrorIs(err, suite.errUnknown)
		suite.Nil(page)
	})

	suite.Run("offset from page", func() {
		suite.urlRepoMock.
			On("List", mock.Anything, 20, 40).
			Once().
			Return(&entity.URLPage{URLs: []*entity.URL{{ShortCode: "abc123"}}, Total: 41}, nil)

		page, err := suite.uc.ListURLs(context.Background(), 3, 20)

		suite.NoError(err)
		suite.Len(page.URLs, 1)
		suite.Equal(int64(41), page.Total)
	})
}

func (suite *URLUseCaseTestSuite) TestListURLsByDateRange() {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 31, 23, 59, 59, 0, time.UTC)

	suite.Run("unknown error", func() {
		suite.urlRepoMock.
			On("RetrieveByDateRange", mock.Anything, start, end).
			Once().
			Return(nil, suite.errUnknown)

		urls, err := suite.uc.ListURLsByDateRange(context.Background(), start, end)

		suite.ErrorIs(err, suite.errUnknown)
		suite.Nil(urls)
	})

	suite.Run("success", func() {
		suite.urlRepoMock.
			On("RetrieveByDateRange", mock.Anything, start, end).
			Once().
			Return([]*entity.URL{{ShortCode: "b"}, {ShortCode: "a"}}, nil)

		urls, err := suite.uc.ListURLsByDateRange(context.Background(), start, end)

		suite.NoError(err)
		suite.Len(urls, 2)
	})
}

func (suite *URLUseCaseTestSuite) TestListTopURLs() {
	suite.Run("success", func() {
		suite.urlRepoMock.
			On("RetrieveTopByClicks", mock.Anything, 5).
			Once().
			Return([]*entity.URL{{ShortCode: "top", URLStats: entity.URLStats{ClickCount: 9}}}, nil)

		urls, err := suite.uc.ListTopURLs(context.Background(), 5)

		suite.NoError(err)
		suite.Len(urls, 1)
		suite.Equal(int64(9), urls[0].ClickCount)
	})

	suite.Run("unknown error", func() {
		suite.urlRepoMock.
			On("RetrieveTopByClicks", mock.Anything, 5).
			Once().
			Return(nil, suite.errUnknown)

		urls, err := suite.uc.ListTopURLs(context.Background(), 5)

		suite.ErrorIs(err, suite.errUnknown)
		suite.Nil(urls)
	})
}

func (suite *URLUseCaseTestSuite) TestDeleteURL() {
	suite.Run("unknown error", func() {
		suite.urlRepoMock.
			On("Remove", mock.Anything, "abc123").
			Once().
			Return(false, suite.errUnknown)

		err := suite.uc.DeleteURL(context.Background(), "abc123")

		suite.Error(err)
		suite.ErrorIs(err, suite.errUnknown)
	})

	suite.Run("url not found", func() {
		suite.urlRepoMock.
			On("Remove", mock.Anything, "abc123").
			Once().
			Return(false, nil)

		err := suite.uc.DeleteURL(context.Background(), "abc123")

		suite.Error(err)
		suite.ErrorIs(err, entity.ErrURLNotFound)
	})

	suite.Run("success", func() {
		suite.urlRepoMock.
			On("Remove", mock.Anything, "abc123").
			Once().
			Return(true, nil)

		err := suite.uc.DeleteURL(context.Background(), "abc123")

		suite.NoError(err)
	})
}

func (suite *URLUseCaseTestSuite) TestGetStats() {
	now := time.Date(2024, 5, 17, 15, 30, 0, 0, time.UTC)
	today := time.Date(2024, 5, 17, 0, 0, 0, 0, time.UTC)

	suite.Run("unknown error", func() {
		suite.uc.now = func() time.Time { return now }
		suite.urlRepoMock.
			On("Stats", mock.Anything, today).
			Once().
			Return(nil, suite.errUnknown)

		stats, err := suite.uc.GetStats(context.Background())

		suite.ErrorIs(err, suite.errUnknown)
		suite.Nil(stats)
	})

	suite.Run("since start of day", func() {
		suite.uc.now = func() time.Time { return now }
		suite.urlRepoMock.
			On("Stats", mock.Anything, today).
			Once().
			Return(entity.NewStats(3, 10, 1), nil)

		stats, err := suite.uc.GetStats(context.Background())

		suite.NoError(err)
		suite.Equal(int64(3), stats.TotalURLs)
		suite.Equal(int64(10), stats.TotalClicks)
		suite.Equal(3.33, stats.AvgClicksPerURL)
		suite.Equal(int64(1), stats.URLsCreatedToday)
	})
}

func (suite *URLUseCaseTestSuite) TestHealthCheck() {
	suite.Run("healthy", func() {
		suite.urlRepoMock.On("HealthCheck", mock.Anything).Once().Return(true)

		suite.True(suite.uc.HealthCheck(context.Background()))
	})

	suite.Run("unhealthy", func() {
		suite.urlRepoMock.On("HealthCheck", mock.Anything).Once().Return(false)

		suite.False(suite.uc.HealthCheck(context.Background()))
	})
}

func TestURLUseCase(t *testing.T) {
	suite.Run(t, new(URLUseCaseTestSuite))
}
