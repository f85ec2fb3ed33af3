package step

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bitrise-io/go-steputils/v2/stepconf"
	"github.com/bitrise-io/go-utils/retry"
	"github.com/bitrise-io/go-utils/sliceutil"
	"github.com/bitrise-io/go-utils/v2/command"
	"github.com/bitrise-io/go-utils/v2/env"
	"github.com/bitrise-io/go-utils/v2/fileutil"
	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/bitrise-io/go-utils/v2/pathutil"
	"github.com/bitrise-io/go-xcode/devportalservice"

	"github.com/bitrise-steplib/steps-spaceship/credentials"
	"github.com/bitrise-steplib/steps-spaceship/devportal"
	"github.com/bitrise-steplib/steps-spaceship/pretty"
	"github.com/bitrise-steplib/steps-spaceship/spaceship"
)

const (
	reportFileName = "devportal_resources.json"

	// Env Outputs
	teamIDEnvKey        = "SPACESHIP_TEAM_ID"
	resourcesPathEnvKey = "SPACESHIP_RESOURCES_PATH"
)

// Resources ...
const (
	ResourceApps                 = "apps"
	ResourceDevices              = "devices"
	ResourceCertificates         = "certificates"
	ResourceProvisioningProfiles = "provisioning_profiles"
)

var supportedResources = []string{ResourceApps, ResourceDevices, ResourceCertificates, ResourceProvisioningProfiles}

// Inputs ...
type Inputs struct {
	AppleID             string          `env:"apple_id"`
	Password            stepconf.Secret `env:"password"`
	PasswordCommand     stepconf.Secret `env:"password_command"`
	TeamID              string          `env:"team_id"`
	Resources           string          `env:"resources,required"`
	RegisterTestDevices bool            `env:"register_test_devices,opt[yes,no]"`
	OutputDir           string          `env:"output_dir,required"`
	VerboseLog          bool            `env:"verbose_log,opt[yes,no]"`
	BuildURL            string          `env:"BITRISE_BUILD_URL"`
	BuildAPIToken       stepconf.Secret `env:"BITRISE_BUILD_API_TOKEN"`
}

// Config ...
type Config struct {
	Inputs
	ResourceList []string
	Connection   *devportalservice.AppleDeveloperConnection // nil if the build has no Apple Developer connection
}

// RunResult ...
type RunResult struct {
	Report Report
}

// ConnectionProvider fetches the Apple Developer connection of the build.
type ConnectionProvider func(buildURL, buildAPIToken string) (*devportalservice.AppleDeveloperConnection, error)

// PortalReporter logs in to the Developer Portal and reports the team's resources.
type PortalReporter struct {
	stepInputParser    stepconf.InputParser
	envRepository      env.Repository
	pathChecker        pathutil.PathChecker
	pathModifier       pathutil.PathModifier
	fileManager        fileutil.FileManager
	logger             log.Logger
	cmdFactory         command.Factory
	connectionProvider ConnectionProvider

	clientOpts devportal.ClientOpts
	loginFunc  spaceship.LoginFunc
}

// NewPortalReporter ...
func NewPortalReporter(stepInputParser stepconf.InputParser, envRepository env.Repository, pathChecker pathutil.PathChecker, pathModifier pathutil.PathModifier, fileManager fileutil.FileManager, logger log.Logger, cmdFactory command.Factory) PortalReporter {
	return PortalReporter{
		stepInputParser:    stepInputParser,
		envRepository:      envRepository,
		pathChecker:        pathChecker,
		pathModifier:       pathModifier,
		fileManager:        fileManager,
		logger:             logger,
		cmdFactory:         cmdFactory,
		connectionProvider: fetchBitriseConnection,
	}
}

func fetchBitriseConnection(buildURL, buildAPIToken string) (*devportalservice.AppleDeveloperConnection, error) {
	return credentials.FetchConnection(retry.NewHTTPClient().StandardClient(), buildURL, buildAPIToken)
}

// ProcessInputs ...
func (s PortalReporter) ProcessInputs() (Config, error) {
	var inputs Inputs
	if err := s.stepInputParser.Parse(&inputs); err != nil {
		return Config{}, fmt.Errorf("issue with input: %w", err)
	}

	stepconf.Print(inputs)
	s.logger.Println()

	config := Config{Inputs: inputs}
	s.logger.EnableDebugLog(config.VerboseLog)

	resources, err := parseResources(inputs.Resources)
	if err != nil {
		return Config{}, fmt.Errorf("issue with input Resources: %w", err)
	}
	config.ResourceList = resources

	absOutputDir, err := s.pathModifier.AbsPath(config.OutputDir)
	if err != nil {
		return Config{}, fmt.Errorf("failed to expand OutputDir (%s): %w", config.OutputDir, err)
	}
	config.OutputDir = absOutputDir

	if config.BuildURL != "" && config.BuildAPIToken != "" {
		s.logger.Infof("Fetching Apple Developer connection")
		conn, err := s.connectionProvider(config.BuildURL, string(config.BuildAPIToken))
		if err != nil {
			s.logger.Warnf("Failed to fetch Apple Developer connection: %s", err)
		} else {
			config.Connection = conn
		}
	}

	return config, nil
}

// EnsureDependencies ...
func (s PortalReporter) EnsureDependencies(config Config) error {
	if config.Password != "" || config.PasswordCommand != "" {
		return nil
	}
	if config.Connection != nil && config.Connection.AppleIDConnection != nil {
		return nil
	}

	if _, err := env.NewCommandLocator().LookPath("security"); err != nil {
		s.logger.Warnf("The security tool is not available, the Apple ID password can not be read from the keychain")
	}
	return nil
}

// Run ...
func (s PortalReporter) Run(config Config) (RunResult, error) {
	ctx := context.Background()

	s.logger.Println()
	s.logger.Infof("Logging in to the Developer Portal")

	session := spaceship.New(spaceship.Opts{
		Logger:            s.logger,
		CredentialSources: s.credentialSources(config),
		ClientOpts:        s.portalClientOpts(config),
		LoginFunc:         s.loginFunc,
	})

	if _, err := session.Login(ctx, config.AppleID, string(config.Password)); err != nil {
		return RunResult{}, err
	}

	teamID, err := session.SelectTeam(ctx)
	if err != nil {
		return RunResult{}, err
	}
	s.logger.Donef("Selected team: %s", teamID)

	report := Report{TeamID: teamID}

	if config.RegisterTestDevices && config.Connection != nil && len(config.Connection.TestDevices) > 0 {
		s.logger.Println()
		s.logger.Infof("Registering test devices")

		devices, err := session.Device()
		if err != nil {
			return RunResult{}, err
		}
		registered, err := devices.RegisterTestDevices(ctx, config.Connection.TestDevices)
		if err != nil {
			return RunResult{}, fmt.Errorf("failed to register test devices: %w", err)
		}
		report.RegisteredDevices = newDeviceEntries(registered)
	}

	for _, resource := range config.ResourceList {
		s.logger.Println()
		s.logger.Infof("Listing %s", strings.ReplaceAll(resource, "_", " "))

		if err := s.listResource(ctx, session, resource, &report); err != nil {
			return RunResult{Report: report}, err
		}
	}

	s.logger.Debugf("Report:\n%s", pretty.Object(report))

	return RunResult{Report: report}, nil
}

// ExportOutput ...
func (s PortalReporter) ExportOutput(config Config, result RunResult) error {
	s.logger.Println()
	s.logger.Infof("Exporting outputs...")

	if result.Report.TeamID == "" {
		s.logger.Warnf("No team selected, skipping outputs")
		return nil
	}

	if err := exportEnvironmentWithEnvman(s.cmdFactory, teamIDEnvKey, result.Report.TeamID); err != nil {
		return fmt.Errorf("failed to export %s: %w", teamIDEnvKey, err)
	}
	s.logger.Donef("The team ID is now available in the Environment Variable: %s (value: %s)", teamIDEnvKey, result.Report.TeamID)

	content, err := pretty.JSON(result.Report)
	if err != nil {
		return fmt.Errorf("failed to encode resource report: %w", err)
	}

	reportPth := filepath.Join(config.OutputDir, reportFileName)
	if err := ExportOutputFileContent(s.fileManager, s.cmdFactory, string(content), reportPth, resourcesPathEnvKey); err != nil {
		return fmt.Errorf("failed to export %s: %w", resourcesPathEnvKey, err)
	}
	s.logger.Donef("The resource report path is now available in the Environment Variable: %s (value: %s)", resourcesPathEnvKey, reportPth)

	return nil
}

func (s PortalReporter) credentialSources(config Config) []credentials.Source {
	var sources []credentials.Source
	if config.Password == "" && config.PasswordCommand != "" {
		sources = append(sources, credentials.NewCommandSource(string(config.PasswordCommand), s.cmdFactory))
	}
	if config.Connection != nil {
		sources = append(sources, credentials.NewConnectionSource(config.Connection))
	}
	return append(sources, credentials.DefaultSources(s.envRepository, s.cmdFactory, s.logger)...)
}

func (s PortalReporter) portalClientOpts(config Config) devportal.ClientOpts {
	opts := s.clientOpts
	opts.Logger = s.logger
	opts.EnableDebugLogs = config.VerboseLog
	opts.TeamID = config.TeamID
	if opts.TeamID == "" {
		teamID, err := credentials.TeamID(s.envRepository, s.pathChecker, credentials.DefaultConfigPaths)
		if err != nil {
			s.logger.Warnf("Failed to read team ID override: %s", err)
		}
		opts.TeamID = teamID
	}
	return opts
}

func (s PortalReporter) listResource(ctx context.Context, session *spaceship.Spaceship, resource string, report *Report) error {
	switch resource {
	case ResourceApps:
		apps, err := session.App()
		if err != nil {
			return err
		}
		list, err := apps.List(ctx)
		if err != nil {
			return err
		}
		report.Apps = newAppEntries(list)
		s.logger.Printf("%d apps found", len(list))
	case ResourceDevices:
		devices, err := session.Device()
		if err != nil {
			return err
		}
		list, err := devices.List(ctx)
		if err != nil {
			return err
		}
		report.Devices = newDeviceEntries(list)
		s.logger.Printf("%d devices found", len(list))
	case ResourceCertificates:
		certificates, err := session.Certificate()
		if err != nil {
			return err
		}
		list, err := certificates.List(ctx)
		if err != nil {
			return err
		}
		report.Certificates = newCertificateEntries(list)
		s.logger.Printf("%d certificates found", len(list))
	case ResourceProvisioningProfiles:
		profiles, err := session.ProvisioningProfile()
		if err != nil {
			return err
		}
		list, err := profiles.List(ctx)
		if err != nil {
			return err
		}
		report.ProvisioningProfiles = newProfileEntries(list)
		s.logger.Printf("%d provisioning profiles found", len(list))
	default:
		return UnsupportedResourceError{Resource: resource}
	}
	return nil
}

func parseResources(value string) ([]string, error) {
	var resources []string
	for _, resource := range sliceutil.CleanWhitespace(strings.Split(value, ","), true) {
		if !sliceutil.IsStringInSlice(resource, supportedResources) {
			return nil, UnsupportedResourceError{Resource: resource}
		}
		if !sliceutil.IsStringInSlice(resource, resources) {
			resources = append(resources, resource)
		}
	}
	if len(resources) == 0 {
		return nil, fmt.Errorf("no resource specified")
	}
	return resources, nil
}
