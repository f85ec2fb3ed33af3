package credentials

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/bitrise-io/go-utils/v2/command"
	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/bitrise-io/go-utils/v2/pathutil"
	"github.com/bitrise-io/go-xcode/appleauth"
	"github.com/bitrise-io/go-xcode/devportalservice"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name     string
		sources  []Source
		username string
		password string
		want     appleauth.AppleID
		wantErr  bool
	}{
		{
			name:     "explicit values win",
			sources:  []Source{StaticSource{AppleID: appleauth.AppleID{Username: "env@example.com", Password: "env"}}},
			username: "arg@example.com",
			password: "arg",
			want:     appleauth.AppleID{Username: "arg@example.com", Password: "arg"},
		},
		{
			name: "username and password from different sources",
			sources: []Source{
				StaticSource{AppleID: appleauth.AppleID{Username: "config@example.com"}},
				StaticSource{AppleID: appleauth.AppleID{Username: "config@example.com", Password: "keychain"}},
			},
			want: appleauth.AppleID{Username: "config@example.com", Password: "keychain"},
		},
		{
			name: "password of a different user is ignored",
			sources: []Source{
				StaticSource{AppleID: appleauth.AppleID{Username: "other@example.com", Password: "other"}},
				StaticSource{AppleID: appleauth.AppleID{Password: "command"}},
			},
			username: "arg@example.com",
			want:     appleauth.AppleID{Username: "arg@example.com", Password: "command"},
		},
		{
			name:    "first source wins",
			sources: []Source{StaticSource{AppleID: appleauth.AppleID{Username: "first@example.com", Password: "first"}}, StaticSource{AppleID: appleauth.AppleID{Username: "second@example.com", Password: "second"}}},
			want:    appleauth.AppleID{Username: "first@example.com", Password: "first"},
		},
		{
			name:     "missing password",
			sources:  []Source{StaticSource{}},
			username: "arg@example.com",
			wantErr:  true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(tt.sources, tt.username, tt.password, log.NewLogger())
			if tt.wantErr {
				var missingErr *appleauth.MissingAuthConfigError
				require.True(t, errors.As(err, &missingErr), err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestResolve_sourceError(t *testing.T) {
	factory := new(MockFactory)
	cmd := new(MockCommand)
	cmd.On("RunAndReturnTrimmedOutput").Return("", errors.New("exit status 1"))
	factory.On("Create", "op", []string{"read", "op://vault/apple/password"}, (*command.Opts)(nil)).Return(cmd)

	_, err := Resolve([]Source{NewCommandSource("op read op://vault/apple/password", factory)}, "arg@example.com", "", log.NewLogger())
	require.EqualError(t, err, "Apple ID password provided by the password command.: password command failed: exit status 1")
}

func TestEnvSource_Fetch(t *testing.T) {
	tests := []struct {
		name string
		envs map[string]string
		want *appleauth.AppleID
	}{
		{
			name: "not configured",
			envs: map[string]string{},
			want: nil,
		},
		{
			name: "fastlane variables",
			envs: map[string]string{"FASTLANE_USER": "john@example.com", "FASTLANE_PASSWORD": "secret"},
			want: &appleauth.AppleID{Username: "john@example.com", Password: "secret"},
		},
		{
			name: "deliver variables",
			envs: map[string]string{"DELIVER_USERNAME": "john@example.com", "DELIVER_PASSWORD": "secret"},
			want: &appleauth.AppleID{Username: "john@example.com", Password: "secret"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewEnvSource(MockEnvRepository{envs: tt.envs}).Fetch("")
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestTeamIDFromEnv(t *testing.T) {
	require.Equal(t, "ABCD1234", TeamIDFromEnv(MockEnvRepository{envs: map[string]string{"SPACESHIP_TEAM_ID": " ABCD1234 "}}))
	require.Equal(t, "", TeamIDFromEnv(MockEnvRepository{envs: map[string]string{}}))
}

func TestTeamID(t *testing.T) {
	dir := t.TempDir()
	configPth := filepath.Join(dir, "config.yml")
	require.NoError(t, os.WriteFile(configPth, []byte("apple_id: john@example.com\nteam_id: \" WXYZ9876 \"\n"), 0600))

	tests := []struct {
		name  string
		envs  map[string]string
		paths []string
		want  string
	}{
		{
			name:  "environment wins over the config file",
			envs:  map[string]string{"FASTLANE_TEAM_ID": "ABCD1234"},
			paths: []string{configPth},
			want:  "ABCD1234",
		},
		{
			name:  "config file",
			envs:  map[string]string{},
			paths: []string{filepath.Join(dir, "missing.yml"), configPth},
			want:  "WXYZ9876",
		},
		{
			name:  "no override",
			envs:  map[string]string{},
			paths: []string{filepath.Join(dir, "missing.yml")},
			want:  "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := TeamID(MockEnvRepository{envs: tt.envs}, pathutil.NewPathChecker(), tt.paths)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestConfigFileSource_Fetch(t *testing.T) {
	dir := t.TempDir()
	configPth := filepath.Join(dir, "config.yml")
	require.NoError(t, os.WriteFile(configPth, []byte("apple_id: john@example.com\nteam_id: ABCD1234\n"), 0600))

	source := NewConfigFileSource(pathutil.NewPathChecker(), []string{filepath.Join(dir, "missing.yml"), configPth})
	got, err := source.Fetch("")
	require.NoError(t, err)
	require.Equal(t, &appleauth.AppleID{Username: "john@example.com"}, got)

	config, err := LoadConfig(pathutil.NewPathChecker(), []string{configPth})
	require.NoError(t, err)
	require.Equal(t, Config{AppleID: "john@example.com", TeamID: "ABCD1234"}, config)

	none, err := NewConfigFileSource(pathutil.NewPathChecker(), []string{filepath.Join(dir, "missing.yml")}).Fetch("")
	require.NoError(t, err)
	require.Nil(t, none)
}

func TestKeychainSource_Fetch(t *testing.T) {
	tests := []struct {
		name     string
		username string
		output   string
		err      error
		want     *appleauth.AppleID
	}{
		{
			name:     "password found",
			username: "john@example.com",
			output:   "secret",
			want:     &appleauth.AppleID{Username: "john@example.com", Password: "secret"},
		},
		{
			name:     "item not found",
			username: "john@example.com",
			err:      errors.New("exit status 44"),
			want:     nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := new(MockCommand)
			cmd.On("PrintableCommandArgs").Return("security find-internet-password")
			cmd.On("RunAndReturnTrimmedOutput").Return(tt.output, tt.err)
			factory := new(MockFactory)
			factory.On("Create", "security", []string{"find-internet-password", "-a", tt.username, "-s", "deliver." + tt.username, "-w"}, (*command.Opts)(nil)).Return(cmd)

			got, err := NewKeychainSource(factory, log.NewLogger()).Fetch(tt.username)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
			factory.AssertExpectations(t)
		})
	}
}

func TestKeychainSource_Fetch_noUsername(t *testing.T) {
	factory := new(MockFactory)

	got, err := NewKeychainSource(factory, log.NewLogger()).Fetch("")
	require.NoError(t, err)
	require.Nil(t, got)
	factory.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
}

func TestCommandSource_Fetch(t *testing.T) {
	cmd := new(MockCommand)
	cmd.On("RunAndReturnTrimmedOutput").Return("secret", nil)
	factory := new(MockFactory)
	factory.On("Create", "pass", []string{"show", "apple id/john"}, (*command.Opts)(nil)).Return(cmd)

	got, err := NewCommandSource(`pass show "apple id/john"`, factory).Fetch("john@example.com")
	require.NoError(t, err)
	require.Equal(t, &appleauth.AppleID{Password: "secret"}, got)
}

func TestConnectionSource_Fetch(t *testing.T) {
	conn := &devportalservice.AppleDeveloperConnection{
		AppleIDConnection: &devportalservice.AppleIDConnection{AppleID: "john@example.com", Password: "secret"},
	}

	got, err := NewConnectionSource(conn).Fetch("")
	require.NoError(t, err)
	require.Equal(t, "john@example.com", got.Username)
	require.Equal(t, "secret", got.Password)

	none, err := NewConnectionSource(&devportalservice.AppleDeveloperConnection{}).Fetch("")
	require.NoError(t, err)
	require.Nil(t, none)
}
