package steprunner

import (
	"errors"
	"testing"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Resources []string
}

type testResult struct {
	TeamID string
}

type MockStep struct {
	mock.Mock
}

func (m *MockStep) ProcessInputs() (testConfig, error) {
	args := m.Called()
	return args.Get(0).(testConfig), args.Error(1)
}

func (m *MockStep) EnsureDependencies(config testConfig) error {
	return m.Called(config).Error(0)
}

func (m *MockStep) Run(config testConfig) (testResult, error) {
	args := m.Called(config)
	return args.Get(0).(testResult), args.Error(1)
}

func (m *MockStep) ExportOutput(config testConfig, result testResult) error {
	return m.Called(config, result).Error(0)
}

func TestStepRunner_Run(t *testing.T) {
	config := testConfig{Resources: []string{"devices"}}
	result := testResult{TeamID: "ABCD1234"}

	tests := []struct {
		name         string
		setup        func(step *MockStep)
		wantExitCode int
	}{
		{
			name: "successful run",
			setup: func(step *MockStep) {
				step.On("ProcessInputs").Return(config, nil)
				step.On("EnsureDependencies", config).Return(nil)
				step.On("Run", config).Return(result, nil)
				step.On("ExportOutput", config, result).Return(nil)
			},
			wantExitCode: 0,
		},
		{
			name: "invalid inputs stop the run",
			setup: func(step *MockStep) {
				step.On("ProcessInputs").Return(testConfig{}, errors.New("unsupported resource (builds)"))
			},
			wantExitCode: 1,
		},
		{
			name: "missing dependency stops the run",
			setup: func(step *MockStep) {
				step.On("ProcessInputs").Return(config, nil)
				step.On("EnsureDependencies", config).Return(errors.New("envman not found"))
			},
			wantExitCode: 1,
		},
		{
			name: "outputs are exported after a failed run",
			setup: func(step *MockStep) {
				step.On("ProcessInputs").Return(config, nil)
				step.On("EnsureDependencies", config).Return(nil)
				step.On("Run", config).Return(result, errors.New("failed to list devices"))
				step.On("ExportOutput", config, result).Return(nil)
			},
			wantExitCode: 1,
		},
		{
			name: "export failure",
			setup: func(step *MockStep) {
				step.On("ProcessInputs").Return(config, nil)
				step.On("EnsureDependencies", config).Return(nil)
				step.On("Run", config).Return(result, nil)
				step.On("ExportOutput", config, result).Return(errors.New("envman failed"))
			},
			wantExitCode: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			step := new(MockStep)
			tt.setup(step)

			runner := NewStepRunner[testConfig, testResult](log.NewLogger())
			require.Equal(t, tt.wantExitCode, runner.Run(step))

			// unexpected phase calls panic in the mock
			step.AssertExpectations(t)
		})
	}
}
