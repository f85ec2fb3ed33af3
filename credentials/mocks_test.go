package credentials

import (
	"github.com/bitrise-io/go-utils/v2/command"
	"github.com/stretchr/testify/mock"
)

type MockEnvRepository struct {
	envs map[string]string
}

func (r MockEnvRepository) List() []string {
	var envs []string
	for k, v := range r.envs {
		envs = append(envs, k+"="+v)
	}
	return envs
}

func (r MockEnvRepository) Unset(key string) error {
	delete(r.envs, key)
	return nil
}

func (r MockEnvRepository) Get(key string) string {
	return r.envs[key]
}

func (r MockEnvRepository) Set(key, value string) error {
	r.envs[key] = value
	return nil
}

type MockFactory struct {
	mock.Mock
}

func (m *MockFactory) Create(name string, args []string, opts *command.Opts) command.Command {
	ret := m.Called(name, args, opts)
	return ret.Get(0).(command.Command)
}

type MockCommand struct {
	mock.Mock
}

func (m *MockCommand) PrintableCommandArgs() string {
	return m.Called().String(0)
}

func (m *MockCommand) Run() error {
	return m.Called().Error(0)
}

func (m *MockCommand) RunAndReturnExitCode() (int, error) {
	args := m.Called()
	return args.Int(0), args.Error(1)
}

func (m *MockCommand) RunAndReturnTrimmedOutput() (string, error) {
	args := m.Called()
	return args.String(0), args.Error(1)
}

func (m *MockCommand) RunAndReturnTrimmedCombinedOutput() (string, error) {
	args := m.Called()
	return args.String(0), args.Error(1)
}

func (m *MockCommand) Start() error {
	return m.Called().Error(0)
}

func (m *MockCommand) Wait() error {
	return m.Called().Error(0)
}
