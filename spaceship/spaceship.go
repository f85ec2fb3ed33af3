// Package spaceship is the entry point of the Developer Portal client: it logs in, selects the team and hands out
// resource collections bound to the logged in session.
//
// A Spaceship holds one session. The package level functions use a default Spaceship for callers that only ever
// need a single session per process.
package spaceship

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/bitrise-io/go-utils/v2/command"
	"github.com/bitrise-io/go-utils/v2/env"
	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/bitrise-io/go-utils/v2/pathutil"
	"github.com/bitrise-io/go-xcode/appleauth"
	"github.com/bitrise-steplib/steps-spaceship/credentials"
	"github.com/bitrise-steplib/steps-spaceship/devportal"
)

// ErrNotLoggedIn is returned by every operation which needs a session before Login succeeded.
var ErrNotLoggedIn = errors.New("not logged in to the Developer Portal, call Login first")

// LoginFunc creates an authenticated Developer Portal session.
type LoginFunc func(ctx context.Context, appleID appleauth.AppleID, opts devportal.ClientOpts) (*devportal.Client, error)

// Opts ...
type Opts struct {
	Logger            log.Logger
	CredentialSources []credentials.Source
	ClientOpts        devportal.ClientOpts
	LoginFunc         LoginFunc
}

// Spaceship holds the current Developer Portal session.
type Spaceship struct {
	logger     log.Logger
	sources    []credentials.Source
	clientOpts devportal.ClientOpts
	login      LoginFunc

	mu     sync.RWMutex
	client *devportal.Client
}

// New ...
func New(opts Opts) *Spaceship {
	logger := opts.Logger
	if logger == nil {
		logger = log.NewLogger()
	}

	login := opts.LoginFunc
	if login == nil {
		login = Authenticate
	}

	clientOpts := opts.ClientOpts
	if clientOpts.Logger == nil {
		clientOpts.Logger = logger
	}

	return &Spaceship{
		logger:     logger,
		sources:    opts.CredentialSources,
		clientOpts: clientOpts,
		login:      login,
	}
}

// DefaultOpts configures the credential sources, team ID override and interactive team selection from the
// process environment and the config file.
func DefaultOpts() Opts {
	logger := log.NewLogger()
	envRepository := env.NewRepository()
	return defaultOpts(logger, envRepository, command.NewFactory(envRepository), pathutil.NewPathChecker(), credentials.DefaultConfigPaths)
}

func defaultOpts(logger log.Logger, envRepository env.Repository, cmdFactory command.Factory, pathChecker pathutil.PathChecker, configPaths []string) Opts {
	teamID, err := credentials.TeamID(envRepository, pathChecker, configPaths)
	if err != nil {
		logger.Warnf("Failed to read team ID override: %s", err)
	}

	return Opts{
		Logger:            logger,
		CredentialSources: credentials.DefaultSources(envRepository, cmdFactory, logger),
		ClientOpts: devportal.ClientOpts{
			Logger:      logger,
			TeamID:      teamID,
			TeamChooser: NewPromptTeamChooser(),
		},
	}
}

// Authenticate creates a new client and logs in with the given Apple ID.
func Authenticate(ctx context.Context, appleID appleauth.AppleID, opts devportal.ClientOpts) (*devportal.Client, error) {
	client, err := devportal.NewClient(opts)
	if err != nil {
		return nil, err
	}

	if err := client.Login(ctx, appleID.Username, appleID.Password); err != nil {
		return nil, err
	}

	return client, nil
}

// Login authenticates with the given username and password, missing values are resolved from the credential sources.
// On success the new session replaces the current one.
func (s *Spaceship) Login(ctx context.Context, username, password string) (*devportal.Client, error) {
	appleID, err := credentials.Resolve(s.sources, username, password, s.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve Apple ID: %w", err)
	}

	s.logger.Printf("Logging in to the Developer Portal as %s", appleID.Username)
	client, err := s.login(ctx, appleID, s.clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to log in: %w", err)
	}

	s.mu.Lock()
	s.client = client
	s.mu.Unlock()

	s.logger.Donef("Logged in as %s", appleID.Username)

	return client, nil
}

// Client returns the current session.
func (s *Spaceship) Client() (*devportal.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.client == nil {
		return nil, ErrNotLoggedIn
	}
	return s.client, nil
}

// SelectTeam selects the team of the current session. Members of a single team are not asked.
func (s *Spaceship) SelectTeam(ctx context.Context) (string, error) {
	client, err := s.Client()
	if err != nil {
		return "", err
	}

	teamID, err := client.SelectTeam(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to select team: %w", err)
	}
	return teamID, nil
}

// App returns the App ID collection of the current session.
func (s *Spaceship) App() (*devportal.AppClient, error) {
	client, err := s.Client()
	if err != nil {
		return nil, err
	}
	return devportal.NewAppClient(client), nil
}

// Device returns the device collection of the current session.
func (s *Spaceship) Device() (*devportal.DeviceClient, error) {
	client, err := s.Client()
	if err != nil {
		return nil, err
	}
	return devportal.NewDeviceClient(client), nil
}

// Certificate returns the certificate collection of the current session.
func (s *Spaceship) Certificate() (*devportal.CertificateClient, error) {
	client, err := s.Client()
	if err != nil {
		return nil, err
	}
	return devportal.NewCertificateClient(client), nil
}

// ProvisioningProfile returns the provisioning profile collection of the current session.
func (s *Spaceship) ProvisioningProfile() (*devportal.ProfileClient, error) {
	client, err := s.Client()
	if err != nil {
		return nil, err
	}
	return devportal.NewProfileClient(client), nil
}
