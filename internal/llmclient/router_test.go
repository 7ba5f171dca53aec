package llmclient

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/odin/internal/mocks"
)

func setupRouter(t *testing.T) (*FallbackRouter, *mocks.MockLLMClient, *mocks.MockLLMClient) {
	t.Helper()
	logger, _ := setupTestLogger(t)
	primary, fallback := new(mocks.MockLLMClient), new(mocks.MockLLMClient)
	router, err := NewFallbackRouter(logger, primary, fallback)
	require.NoError(t, err)
	t.Cleanup(func() { mock.AssertExpectationsForObjects(t, primary, fallback) })
	return router, primary, fallback
}

func TestNewFallbackRouter_MissingClients(t *testing.T) {
	logger, _ := setupTestLogger(t)
	_, err := NewFallbackRouter(logger, new(mocks.MockLLMClient), nil)
	assert.Error(t, err)
}

func TestFallbackRouter_PrimarySucceeds(t *testing.T) {
	router, primary, fallback := setupRouter(t)
	primary.On("Complete", mock.Anything, mock.Anything).Return("primary reply", nil).Once()

	text, err := router.Complete(context.Background(), createTestRequest())

	require.NoError(t, err)
	assert.Equal(t, "primary reply", text)
	fallback.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}

func TestFallbackRouter_FallsBack(t *testing.T) {
	router, primary, fallback := setupRouter(t)
	primary.On("Complete", mock.Anything, mock.Anything).Return("", errors.New("status 503")).Once()
	fallback.On("Complete", mock.Anything, mock.Anything).Return("fallback reply", nil).Once()

	text, err := router.Complete(context.Background(), createTestRequest())

	require.NoError(t, err)
	assert.Equal(t, "fallback reply", text)
}

func TestFallbackRouter_BothFail(t *testing.T) {
	router, primary, fallback := setupRouter(t)
	fbErr := errors.New("status 500")
	primary.On("Complete", mock.Anything, mock.Anything).Return("", errors.New("status 503")).Once()
	fallback.On("Complete", mock.Anything, mock.Anything).Return("", fbErr).Once()

	_, err := router.Complete(context.Background(), createTestRequest())

	require.Error(t, err)
	assert.ErrorIs(t, err, fbErr)
	assert.Contains(t, err.Error(), "status 503")
}

func TestFallbackRouter_CancellationNotRerouted(t *testing.T) {
	router, primary, fallback := setupRouter(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	primary.On("Complete", mock.Anything, mock.Anything).Return("", context.Canceled).Once()

	_, err := router.Complete(ctx, createTestRequest())

	assert.ErrorIs(t, err, context.Canceled)
	fallback.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}

func TestFallbackRouter_CloseJoinsErrors(t *testing.T) {
	router, primary, fallback := setupRouter(t)
	closeErr := errors.New("close failed")
	primary.On("Close").Return(nil).Once()
	fallback.On("Close").Return(closeErr).Once()

	assert.ErrorIs(t, router.Close(), closeErr)
}
