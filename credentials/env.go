package credentials

import (
	"strings"

	"github.com/bitrise-io/go-utils/v2/env"
	"github.com/bitrise-io/go-xcode/appleauth"
)

var (
	usernameEnvKeys = []string{"FASTLANE_USER", "DELIVER_USER", "DELIVER_USERNAME"}
	passwordEnvKeys = []string{"FASTLANE_PASSWORD", "DELIVER_PASSWORD"}
	teamIDEnvKeys   = []string{"FASTLANE_TEAM_ID", "SPACESHIP_TEAM_ID"}
)

// EnvSource reads the Apple ID from the environment variables fastlane uses.
type EnvSource struct {
	envRepository env.Repository
}

// NewEnvSource ...
func NewEnvSource(envRepository env.Repository) EnvSource {
	return EnvSource{envRepository: envRepository}
}

// Description ...
func (s EnvSource) Description() string {
	return "Apple ID found in the environment."
}

// Fetch ...
func (s EnvSource) Fetch(string) (*appleauth.AppleID, error) {
	username := firstEnv(s.envRepository, usernameEnvKeys)
	password := firstEnv(s.envRepository, passwordEnvKeys)
	if username == "" && password == "" {
		return nil, nil
	}

	return &appleauth.AppleID{Username: username, Password: password}, nil
}

// TeamIDFromEnv returns the team ID override set in the environment, if any.
func TeamIDFromEnv(envRepository env.Repository) string {
	return firstEnv(envRepository, teamIDEnvKeys)
}

func firstEnv(envRepository env.Repository, keys []string) string {
	for _, key := range keys {
		if value := strings.TrimSpace(envRepository.Get(key)); value != "" {
			return value
		}
	}
	return ""
}
