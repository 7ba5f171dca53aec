// File: internal/mocks/mocks.go
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/xkilldash9x/odin/api/schemas"
	"github.com/xkilldash9x/odin/internal/action"
	"github.com/xkilldash9x/odin/internal/config"
)

// -- Config Mock --

// MockConfig mocks the config.Interface.
type MockConfig struct {
	mock.Mock
}

var _ config.Interface = (*MockConfig)(nil)

// --- Getters ---

func (m *MockConfig) Logger() config.LoggerConfig {
	args := m.Called()
	return args.Get(0).(config.LoggerConfig)
}

func (m *MockConfig) Agent() config.AgentConfig {
	args := m.Called()
	return args.Get(0).(config.AgentConfig)
}

func (m *MockConfig) LLM() config.LLMConfig {
	args := m.Called()
	return args.Get(0).(config.LLMConfig)
}

func (m *MockConfig) Browser() config.BrowserConfig {
	args := m.Called()
	return args.Get(0).(config.BrowserConfig)
}

func (m *MockConfig) Store() config.StoreConfig {
	args := m.Called()
	return args.Get(0).(config.StoreConfig)
}

// --- Setters ---

func (m *MockConfig) SetAgentMaxSteps(n int)              { m.Called(n) }
func (m *MockConfig) SetAgentUseGrid(b bool)              { m.Called(b) }
func (m *MockConfig) SetAgentGridStep(n int)              { m.Called(n) }
func (m *MockConfig) SetLLMProvider(p config.LLMProvider) { m.Called(p) }
func (m *MockConfig) SetLLMModel(s string)                { m.Called(s) }
func (m *MockConfig) SetBrowserHeadless(b bool)           { m.Called(b) }
func (m *MockConfig) SetBrowserStartURL(u string)         { m.Called(u) }
func (m *MockConfig) SetStoreEnabled(b bool)              { m.Called(b) }

// -- LLM Client Mock --

// MockLLMClient mocks the schemas.LLMClient interface.
type MockLLMClient struct {
	mock.Mock
}

var _ schemas.LLMClient = (*MockLLMClient)(nil)

func (m *MockLLMClient) Complete(ctx context.Context, req schemas.CompletionRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *MockLLMClient) Close() error {
	return m.Called().Error(0)
}

// Replies queues one reply per Complete call, in order.
func (m *MockLLMClient) Replies(texts ...string) {
	for _, text := range texts {
		m.On("Complete", mock.Anything, mock.Anything).Return(text, nil).Once()
	}
}

// -- Capture Mocks --

// MockCapturer mocks a screen capturer.
type MockCapturer struct {
	mock.Mock
}

func (m *MockCapturer) Capture(ctx context.Context, opts schemas.CaptureOptions) (*schemas.Screenshot, error) {
	args := m.Called(ctx, opts)
	var shot *schemas.Screenshot
	if v := args.Get(0); v != nil {
		shot = v.(*schemas.Screenshot)
	}
	return shot, args.Error(1)
}

// MockScopedCapturer adds the Open/Close lifecycle.
type MockScopedCapturer struct {
	MockCapturer
}

func (m *MockScopedCapturer) Open(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockScopedCapturer) Close() error {
	return m.Called().Error(0)
}

// -- Executor Mock --

// MockExecutor mocks the execution backend.
type MockExecutor struct {
	mock.Mock
}

func (m *MockExecutor) Perform(ctx context.Context, a action.Action) (schemas.ExecutionOutcome, error) {
	args := m.Called(ctx, a)
	return args.Get(0).(schemas.ExecutionOutcome), args.Error(1)
}
