// Package devportal implements a client for the Apple Developer Portal that authenticates with an Apple ID.
//
// It contains the session handling (cookies, CSRF tokens, team selection) and the resource collections
// built on top of it: apps, devices, certificates and provisioning profiles.
package devportal

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"regexp"
	"strings"
	"sync"

	"github.com/bitrise-io/go-utils/retry"
	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/net/publicsuffix"
)

const (
	defaultLandingURL      = "https://developer.apple.com/devcenter/ios/index.action"
	defaultAuthURL         = "https://idmsa.apple.com/IDMSWebAuth/authenticate"
	defaultPortalURL       = "https://developer.apple.com/services-account/QH65B2/"
	defaultXcodeServiceURL = "https://developerservices2.apple.com/services/QH65B2/"

	sessionCookieName = "myacinfo"
	protocolVersion   = "QH65B2"
	xcodeClientID     = "XABBG36SBA"
)

var appIDKeyPattern = regexp.MustCompile(`appIdKey=([0-9a-fA-F]+)`)

// Endpoints ...
type Endpoints struct {
	Landing      string
	Auth         string
	Portal       string
	XcodeService string
}

// DefaultEndpoints returns Apple's production endpoints.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		Landing:      defaultLandingURL,
		Auth:         defaultAuthURL,
		Portal:       defaultPortalURL,
		XcodeService: defaultXcodeServiceURL,
	}
}

// TeamChooser picks one team when the account is a member of several.
type TeamChooser interface {
	ChooseTeam(teams []Team) (Team, error)
}

// ClientOpts ...
type ClientOpts struct {
	Endpoints       Endpoints
	HTTPClient      *http.Client
	Logger          log.Logger
	TeamID          string
	TeamChooser     TeamChooser
	EnableDebugLogs bool
}

// Client holds an authenticated Developer Portal session.
type Client struct {
	EnableDebugLogs bool

	httpClient  *http.Client
	logger      log.Logger
	endpoints   Endpoints
	portalURL   *url.URL
	xcodeURL    *url.URL
	teamChooser TeamChooser

	csrf csrfTokens

	mu              sync.Mutex
	username        string
	teamID          string
	preferredTeamID string
	teams           []Team
}

// NewRetryableHTTPClient creates a http client with retry settings and a cookie jar.
func NewRetryableHTTPClient(logger log.Logger) *http.Client {
	client := retry.NewHTTPClient()
	client.CheckRetry = func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		if resp != nil && resp.StatusCode == http.StatusTooManyRequests {
			logger.Debugf("Received HTTP 429 (Too Many Requests), retrying request...")
			return true, nil
		}

		shouldRetry, err := retryablehttp.DefaultRetryPolicy(ctx, resp, err)
		if shouldRetry && resp != nil {
			logger.Debugf("Retry network error: %d", resp.StatusCode)
		}

		return shouldRetry, err
	}
	return client.StandardClient()
}

// NewClient creates a client which is not yet logged in.
func NewClient(opts ClientOpts) (*Client, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.NewLogger()
	}

	endpoints := opts.Endpoints
	if endpoints == (Endpoints{}) {
		endpoints = DefaultEndpoints()
	}

	portalURL, err := url.Parse(endpoints.Portal)
	if err != nil {
		return nil, fmt.Errorf("invalid portal url (%s): %w", endpoints.Portal, err)
	}
	xcodeURL, err := url.Parse(endpoints.XcodeService)
	if err != nil {
		return nil, fmt.Errorf("invalid Xcode service url (%s): %w", endpoints.XcodeService, err)
	}

	// Each client gets its own cookie jar, even when the http.Client is shared.
	var httpClient *http.Client
	if opts.HTTPClient != nil {
		hc := *opts.HTTPClient
		httpClient = &hc
	} else {
		httpClient = NewRetryableHTTPClient(logger)
	}
	jar, err := newCookieJar()
	if err != nil {
		return nil, err
	}
	httpClient.Jar = jar

	return &Client{
		EnableDebugLogs: opts.EnableDebugLogs,
		httpClient:      httpClient,
		logger:          logger,
		endpoints:       endpoints,
		portalURL:       portalURL,
		xcodeURL:        xcodeURL,
		teamChooser:     opts.TeamChooser,
		preferredTeamID: strings.TrimSpace(opts.TeamID),
	}, nil
}

// Login authenticates the Apple ID and stores the session cookie.
func (c *Client) Login(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return InvalidUserCredentialsError{Username: username}
	}

	// A login starts a new session.
	jar, err := newCookieJar()
	if err != nil {
		return err
	}
	c.httpClient.Jar = jar

	appIDKey, err := c.fetchAppIDKey(ctx)
	if err != nil {
		return err
	}

	form := url.Values{}
	form.Set("appleId", username)
	form.Set("accountPassword", password)
	form.Set("appIdKey", appIDKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoints.Auth, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	c.debugf("Request: POST %s (body omitted)", c.endpoints.Auth)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("login request failed: %w", err)
	}
	c.closeBody(resp)

	if resp.StatusCode >= http.StatusInternalServerError {
		return NetworkError{Method: http.MethodPost, URL: c.endpoints.Auth, Status: resp.StatusCode}
	}

	if !c.hasSessionCookie() {
		return InvalidUserCredentialsError{Username: username}
	}

	c.mu.Lock()
	c.username = username
	c.teams = nil
	c.mu.Unlock()

	c.logger.Debugf("Logged in as %s", username)

	return nil
}

// Username returns the Apple ID of the logged in user.
func (c *Client) Username() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.username
}

// TeamID returns the selected team's ID, it is empty until a team is selected.
func (c *Client) TeamID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.teamID
}

// SetTeamID selects a team without contacting the portal.
func (c *Client) SetTeamID(teamID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.teamID = teamID
}

func (c *Client) fetchAppIDKey(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoints.Landing, nil)
	if err != nil {
		return "", err
	}

	body, err := c.doRaw(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch login page: %w", err)
	}

	match := appIDKeyPattern.FindSubmatch(body)
	if len(match) != 2 {
		return "", ErrAppIDKeyNotFound
	}

	return string(match[1]), nil
}

func newCookieJar() (http.CookieJar, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	return jar, nil
}

func (c *Client) hasSessionCookie() bool {
	authURL, err := url.Parse(c.endpoints.Auth)
	if err != nil {
		return false
	}

	for _, cookie := range c.httpClient.Jar.Cookies(authURL) {
		if cookie.Name == sessionCookieName && cookie.Value != "" {
			return true
		}
	}
	return false
}

func (c *Client) debugf(format string, v ...interface{}) {
	if c.EnableDebugLogs {
		c.logger.Debugf(format, v...)
	}
}

func (c *Client) closeBody(resp *http.Response) {
	if err := resp.Body.Close(); err != nil {
		c.logger.Warnf("Failed to close response body: %s", err)
	}
}
