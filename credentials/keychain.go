package credentials

import (
	"fmt"

	"github.com/bitrise-io/go-utils/v2/command"
	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/bitrise-io/go-xcode/appleauth"
)

// KeychainSource reads the password fastlane stores in the macOS login keychain for the resolved username.
type KeychainSource struct {
	cmdFactory command.Factory
	logger     log.Logger
}

// NewKeychainSource ...
func NewKeychainSource(cmdFactory command.Factory, logger log.Logger) KeychainSource {
	return KeychainSource{cmdFactory: cmdFactory, logger: logger}
}

// Description ...
func (s KeychainSource) Description() string {
	return "Apple ID password found in the keychain."
}

// Fetch ...
func (s KeychainSource) Fetch(username string) (*appleauth.AppleID, error) {
	if username == "" {
		return nil, nil
	}

	cmd := s.cmdFactory.Create("security", []string{
		"find-internet-password",
		"-a", username,
		"-s", keychainServer(username),
		"-w",
	}, nil)

	s.logger.Debugf("$ %s", cmd.PrintableCommandArgs())
	password, err := cmd.RunAndReturnTrimmedOutput()
	if err != nil {
		// security exits with 44 when the item is missing
		s.logger.Debugf("No keychain item found for %s: %s", username, err)
		return nil, nil
	}
	if password == "" {
		return nil, nil
	}

	return &appleauth.AppleID{Username: username, Password: password}, nil
}

func keychainServer(username string) string {
	return fmt.Sprintf("deliver.%s", username)
}
