package credentials

import (
	"fmt"
	"net/http"

	"github.com/bitrise-io/go-xcode/appleauth"
	"github.com/bitrise-io/go-xcode/devportalservice"
)

// FetchConnection downloads the Apple Developer connection of the Bitrise build.
func FetchConnection(httpClient *http.Client, buildURL, buildAPIToken string) (*devportalservice.AppleDeveloperConnection, error) {
	if buildURL == "" || buildAPIToken == "" {
		return nil, nil
	}

	provider := devportalservice.NewBitriseClient(httpClient, buildURL, buildAPIToken)
	conn, err := provider.GetAppleDeveloperConnection()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch Apple Developer connection: %w", err)
	}
	return conn, nil
}

// ConnectionSource provides the Apple ID of a Bitrise Apple Developer connection.
type ConnectionSource struct {
	connection *devportalservice.AppleDeveloperConnection
	source     appleauth.ConnectionAppleIDSource
}

// NewConnectionSource ...
func NewConnectionSource(connection *devportalservice.AppleDeveloperConnection) ConnectionSource {
	return ConnectionSource{connection: connection}
}

// Description ...
func (s ConnectionSource) Description() string {
	return s.source.Description()
}

// Fetch ...
func (s ConnectionSource) Fetch(string) (*appleauth.AppleID, error) {
	creds, err := s.source.Fetch(s.connection, appleauth.Inputs{})
	if err != nil {
		return nil, err
	}
	if creds == nil || creds.AppleID == nil {
		return nil, nil
	}
	return creds.AppleID, nil
}
