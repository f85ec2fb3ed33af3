// Package credentials resolves the Apple ID used to log in to the Developer Portal from an ordered list of sources.
package credentials

import (
	"fmt"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/bitrise-io/go-xcode/appleauth"
)

// Source provides a (possibly partial) Apple ID.
// Fetch receives the username resolved so far, which may be empty, and returns nil if the source is not configured.
type Source interface {
	Description() string
	Fetch(username string) (*appleauth.AppleID, error)
}

// Resolve fills the username and password from the sources in order, explicitly given values take precedence.
// A password is only taken from a source which reports no username or the already resolved one.
func Resolve(sources []Source, username, password string, logger log.Logger) (appleauth.AppleID, error) {
	resolved := appleauth.AppleID{Username: username, Password: password}

	for _, source := range sources {
		if resolved.Username != "" && resolved.Password != "" {
			break
		}

		appleID, err := source.Fetch(resolved.Username)
		if err != nil {
			return appleauth.AppleID{}, fmt.Errorf("%s: %w", source.Description(), err)
		}
		if appleID == nil {
			continue
		}

		logger.Debugf("%s", source.Description())

		if resolved.Username == "" {
			resolved.Username = appleID.Username
		}
		if resolved.Password == "" && (appleID.Username == "" || appleID.Username == resolved.Username) {
			resolved.Password = appleID.Password
			resolved.AppSpecificPassword = appleID.AppSpecificPassword
		}
	}

	if resolved.Username == "" || resolved.Password == "" {
		return appleauth.AppleID{}, &appleauth.MissingAuthConfigError{}
	}

	return resolved, nil
}

// StaticSource returns the same Apple ID every time.
type StaticSource struct {
	AppleID appleauth.AppleID
}

// Description ...
func (s StaticSource) Description() string {
	return "Apple ID provided by the caller."
}

// Fetch ...
func (s StaticSource) Fetch(string) (*appleauth.AppleID, error) {
	if s.AppleID.Username == "" && s.AppleID.Password == "" {
		return nil, nil
	}
	appleID := s.AppleID
	return &appleID, nil
}
