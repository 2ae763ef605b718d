package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/chatlead/convo-pipeline/internal/apperrors"
	"github.com/chatlead/convo-pipeline/internal/model"
	storagemock "github.com/chatlead/convo-pipeline/internal/storage/mock"
	"github.com/chatlead/convo-pipeline/pkg/logger"
)

func setTestLogger(t *testing.T) {
	t.Helper()

	originalLogger := logger.Log
	logger.Log = zaptest.NewLogger(t)
	t.Cleanup(func() { logger.Log = originalLogger })
}

func TestBusinessContextCache_Get(t *testing.T) {
	setTestLogger(t)

	businessID := "biz-1"
	business := model.NewBusiness(&model.Business{ID: businessID, Name: "Glow Salon", LanguagePreference: "es"})
	services := []model.BusinessService{
		{BusinessID: businessID, Name: "Haircut", Price: "$30", Active: true},
	}

	t.Run("Miss Then Hit", func(t *testing.T) {
		repo := new(storagemock.BusinessRepoMock)
		repo.On("FindBusinessByID", mock.Anything, businessID).Return(business, nil).Once()
		repo.On("FindActiveServices", mock.Anything, businessID).Return(services, nil).Once()

		cache := NewBusinessContextCache(repo, 5*time.Minute)

		got, err := cache.Get(context.Background(), businessID)
		require.NoError(t, err)
		assert.Equal(t, "Glow Salon", got.BusinessName)
		assert.Equal(t, "es", got.PreferredLanguage())
		assert.Len(t, got.Services, 1)
		assert.False(t, got.Missing)

		// Second call served from cache, repo not touched again.
		got2, err := cache.Get(context.Background(), businessID)
		require.NoError(t, err)
		assert.Equal(t, got, got2)
		repo.AssertExpectations(t)
	})

	t.Run("Missing Tenant Cached Negatively", func(t *testing.T) {
		repo := new(storagemock.BusinessRepoMock)
		repo.On("FindBusinessByID", mock.Anything, "ghost").
			Return(nil, fmt.Errorf("%w: business ghost", apperrors.ErrNotFound)).Once()

		cache := NewBusinessContextCache(repo, 5*time.Minute)

		got, err := cache.Get(context.Background(), "ghost")
		require.NoError(t, err)
		assert.True(t, got.Missing)

		// Negative entry served from cache too.
		got2, err := cache.Get(context.Background(), "ghost")
		require.NoError(t, err)
		assert.True(t, got2.Missing)
		repo.AssertExpectations(t)
	})

	t.Run("Load Failure Not Cached", func(t *testing.T) {
		repo := new(storagemock.BusinessRepoMock)
		repo.On("FindBusinessByID", mock.Anything, businessID).
			Return(nil, errors.New("connection refused")).Once()
		repo.On("FindBusinessByID", mock.Anything, businessID).Return(business, nil).Once()
		repo.On("FindActiveServices", mock.Anything, businessID).Return(services, nil).Once()

		cache := NewBusinessContextCache(repo, 5*time.Minute)

		_, err := cache.Get(context.Background(), businessID)
		require.Error(t, err)

		// Failure did not poison the cache; retry loads cleanly.
		got, err := cache.Get(context.Background(), businessID)
		require.NoError(t, err)
		assert.Equal(t, "Glow Salon", got.BusinessName)
		repo.AssertExpectations(t)
	})
}

func TestBusinessContextCache_Invalidate(t *testing.T) {
	setTestLogger(t)

	businessID := "biz-1"
	before := model.NewBusiness(&model.Business{ID: businessID, Name: "Before"})
	after := model.NewBusiness(&model.Business{ID: businessID, Name: "After"})

	repo := new(storagemock.BusinessRepoMock)
	repo.On("FindBusinessByID", mock.Anything, businessID).Return(before, nil).Once()
	repo.On("FindBusinessByID", mock.Anything, businessID).Return(after, nil).Once()
	repo.On("FindActiveServices", mock.Anything, businessID).Return([]model.BusinessService{}, nil).Twice()

	cache := NewBusinessContextCache(repo, time.Hour)

	got, err := cache.Get(context.Background(), businessID)
	require.NoError(t, err)
	assert.Equal(t, "Before", got.BusinessName)

	cache.Invalidate(businessID)

	got, err = cache.Get(context.Background(), businessID)
	require.NoError(t, err)
	assert.Equal(t, "After", got.BusinessName)
	repo.AssertExpectations(t)
}

func TestBusinessContextCache_ConcurrentGetInvalidate(t *testing.T) {
	setTestLogger(t)

	const workers = 8
	const iterations = 50

	businessID := "biz-1"
	business := model.NewBusiness(&model.Business{ID: businessID, Name: "Glow Salon"})

	repo := new(storagemock.BusinessRepoMock)
	repo.On("FindBusinessByID", mock.Anything, businessID).Return(business, nil)
	repo.On("FindActiveServices", mock.Anything, businessID).Return([]model.BusinessService{}, nil)

	cache := NewBusinessContextCache(repo, time.Hour)

	var wg sync.WaitGroup
	errs := make(chan error, workers*iterations)
	for w := 0; w < workers; w++ {
		invalidator := w%2 == 0
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < iterations; i++ {
				if invalidator {
					cache.Invalidate(businessID)
				}
				got, err := cache.Get(context.Background(), businessID)
				if err != nil {
					errs <- err
					continue
				}
				if got.BusinessName != "Glow Salon" {
					errs <- fmt.Errorf("unexpected context for %s: %+v", businessID, got)
				}
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
}

func TestBusinessContextCache_Expiry(t *testing.T) {
	setTestLogger(t)

	businessID := "biz-1"
	business := model.NewBusiness(&model.Business{ID: businessID, Name: "Glow Salon"})

	repo := new(storagemock.BusinessRepoMock)
	repo.On("FindBusinessByID", mock.Anything, businessID).Return(business, nil).Twice()
	repo.On("FindActiveServices", mock.Anything, businessID).Return([]model.BusinessService{}, nil).Twice()

	cache := NewBusinessContextCache(repo, time.Millisecond)

	_, err := cache.Get(context.Background(), businessID)
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)

	_, err = cache.Get(context.Background(), businessID)
	require.NoError(t, err)
	repo.AssertExpectations(t)
}
