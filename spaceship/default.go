package spaceship

import (
	"context"
	"sync"

	"github.com/bitrise-steplib/steps-spaceship/devportal"
)

var (
	defaultMu        sync.Mutex
	defaultSpaceship *Spaceship
)

// Default returns the Spaceship used by the package level functions, created with DefaultOpts on first use.
func Default() *Spaceship {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	if defaultSpaceship == nil {
		defaultSpaceship = New(DefaultOpts())
	}
	return defaultSpaceship
}

// SetDefault replaces the Spaceship used by the package level functions.
func SetDefault(s *Spaceship) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultSpaceship = s
}

// Login logs in with the default Spaceship.
func Login(ctx context.Context, username, password string) (*devportal.Client, error) {
	return Default().Login(ctx, username, password)
}

// Client ...
func Client() (*devportal.Client, error) {
	return Default().Client()
}

// SelectTeam ...
func SelectTeam(ctx context.Context) (string, error) {
	return Default().SelectTeam(ctx)
}

// App ...
func App() (*devportal.AppClient, error) {
	return Default().App()
}

// Device ...
func Device() (*devportal.DeviceClient, error) {
	return Default().Device()
}

// Certificate ...
func Certificate() (*devportal.CertificateClient, error) {
	return Default().Certificate()
}

// ProvisioningProfile ...
func ProvisioningProfile() (*devportal.ProfileClient, error) {
	return Default().ProvisioningProfile()
}
