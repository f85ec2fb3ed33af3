package devportal

import (
	"errors"
	"fmt"
	"strings"
)

// ErrAppIDKeyNotFound is returned when the login page does not expose the key required by the auth endpoint.
var ErrAppIDKeyNotFound = errors.New("failed to find appIdKey on the Developer Portal login page")

// InvalidUserCredentialsError ...
type InvalidUserCredentialsError struct {
	Username string
}

func (e InvalidUserCredentialsError) Error() string {
	return fmt.Sprintf("invalid username and password combination, used '%s' as the username", e.Username)
}

// NoTeamsError ...
type NoTeamsError struct {
	Username string
}

func (e NoTeamsError) Error() string {
	return fmt.Sprintf("no teams available on the Developer Portal for %s, make sure to accept the latest terms at https://developer.apple.com", e.Username)
}

// MultipleTeamsError is returned when a team has to be chosen but no chooser is available.
type MultipleTeamsError struct {
	Teams []Team
}

func (e MultipleTeamsError) Error() string {
	var ids []string
	for _, team := range e.Teams {
		ids = append(ids, team.TeamID)
	}
	return fmt.Sprintf("multiple teams found (%s), set a team ID", strings.Join(ids, ", "))
}

// TeamNotFoundError ...
type TeamNotFoundError struct {
	TeamID string
}

func (e TeamNotFoundError) Error() string {
	return fmt.Sprintf("team not found: %s", e.TeamID)
}

// UnexpectedResponseError is returned when the portal answers with a non-zero result code.
type UnexpectedResponseError struct {
	Endpoint     string
	ResultCode   int
	ResultString string
	UserString   string
}

func (e UnexpectedResponseError) Error() string {
	msg := e.UserString
	if msg == "" {
		msg = e.ResultString
	}
	return fmt.Sprintf("%s: unexpected result code %d: %s", e.Endpoint, e.ResultCode, msg)
}

// NetworkError ...
type NetworkError struct {
	Method string
	URL    string
	Status int
	Body   string
}

func (e NetworkError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status code %d: %s", e.Method, e.URL, e.Status, e.Body)
}
