package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/chatlead/convo-pipeline/internal/model"
)

func TestTrackConversationWindow_OpensWindowAndIncrements(t *testing.T) {
	svc, mocks := newTestService(t)
	msg := inboundMessage()

	mocks.threadRepo.On("ClaimUsageWindow", mock.Anything, int64(42), 24*time.Hour).Return(true, nil).Once()
	mocks.usageRepo.On("Increment", mock.Anything, model.MetricConversations24h, "2026-08", int64(1)).Return(nil).Once()

	opened, err := svc.TrackConversationWindow(context.Background(), 42, msg)

	require.NoError(t, err)
	assert.True(t, opened)
	mocks.threadRepo.AssertExpectations(t)
	mocks.usageRepo.AssertExpectations(t)
}

func TestTrackConversationWindow_WindowAlreadyOpen(t *testing.T) {
	svc, mocks := newTestService(t)
	msg := inboundMessage()

	mocks.threadRepo.On("ClaimUsageWindow", mock.Anything, int64(42), 24*time.Hour).Return(false, nil).Once()

	opened, err := svc.TrackConversationWindow(context.Background(), 42, msg)

	require.NoError(t, err)
	assert.False(t, opened)
	mocks.usageRepo.AssertNotCalled(t, "Increment", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestTrackConversationWindow_ClaimFailure(t *testing.T) {
	svc, mocks := newTestService(t)
	msg := inboundMessage()

	mocks.threadRepo.On("ClaimUsageWindow", mock.Anything, int64(42), 24*time.Hour).
		Return(false, errors.New("deadlock detected")).Once()

	opened, err := svc.TrackConversationWindow(context.Background(), 42, msg)

	require.Error(t, err)
	assert.False(t, opened)
	mocks.usageRepo.AssertNotCalled(t, "Increment", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
