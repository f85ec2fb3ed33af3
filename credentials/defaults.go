package credentials

import (
	"strings"

	"github.com/bitrise-io/go-utils/v2/command"
	"github.com/bitrise-io/go-utils/v2/env"
	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/bitrise-io/go-utils/v2/pathutil"
)

// DefaultSources returns the sources used when none are configured: environment, config file, keychain.
func DefaultSources(envRepository env.Repository, cmdFactory command.Factory, logger log.Logger) []Source {
	return []Source{
		NewEnvSource(envRepository),
		NewConfigFileSource(pathutil.NewPathChecker(), DefaultConfigPaths),
		NewKeychainSource(cmdFactory, logger),
	}
}

// TeamID returns the team ID override from the environment, falling back to the first config file found.
func TeamID(envRepository env.Repository, pathChecker pathutil.PathChecker, configPaths []string) (string, error) {
	if teamID := TeamIDFromEnv(envRepository); teamID != "" {
		return teamID, nil
	}

	config, err := LoadConfig(pathChecker, configPaths)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(config.TeamID), nil
}
