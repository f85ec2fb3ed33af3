package credentials

import (
	"fmt"

	"github.com/bitrise-io/go-utils/fileutil"
	"github.com/bitrise-io/go-utils/v2/pathutil"
	"github.com/bitrise-io/go-xcode/appleauth"
	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v3"
)

// DefaultConfigPaths are searched in order for a config file.
var DefaultConfigPaths = []string{
	".spaceship.yml",
	"~/.spaceship/config.yml",
}

// Config is the content of a spaceship config file.
type Config struct {
	AppleID string `yaml:"apple_id"`
	TeamID  string `yaml:"team_id"`
}

// LoadConfig reads the first existing config file, it returns an empty Config if there is none.
func LoadConfig(pathChecker pathutil.PathChecker, paths []string) (Config, error) {
	for _, pth := range paths {
		expanded, err := homedir.Expand(pth)
		if err != nil {
			return Config{}, fmt.Errorf("failed to expand path (%s): %w", pth, err)
		}

		exists, err := pathChecker.IsPathExists(expanded)
		if err != nil {
			return Config{}, err
		}
		if !exists {
			continue
		}

		b, err := fileutil.ReadBytesFromFile(expanded)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file (%s): %w", expanded, err)
		}

		var config Config
		if err := yaml.Unmarshal(b, &config); err != nil {
			return Config{}, fmt.Errorf("failed to parse config file (%s): %w", expanded, err)
		}
		return config, nil
	}

	return Config{}, nil
}

// ConfigFileSource provides the username from a config file.
type ConfigFileSource struct {
	pathChecker pathutil.PathChecker
	paths       []string
}

// NewConfigFileSource ...
func NewConfigFileSource(pathChecker pathutil.PathChecker, paths []string) ConfigFileSource {
	return ConfigFileSource{pathChecker: pathChecker, paths: paths}
}

// Description ...
func (s ConfigFileSource) Description() string {
	return "Apple ID found in the config file."
}

// Fetch ...
func (s ConfigFileSource) Fetch(string) (*appleauth.AppleID, error) {
	config, err := LoadConfig(s.pathChecker, s.paths)
	if err != nil {
		return nil, err
	}
	if config.AppleID == "" {
		return nil, nil
	}

	return &appleauth.AppleID{Username: config.AppleID}, nil
}
