package steprunner

import (
	"fmt"

	"github.com/bitrise-io/go-utils/v2/errorutil"
	"github.com/bitrise-io/go-utils/v2/log"
)

// Step is a Bitrise Step split into its phases.
type Step[C any, R any] interface {
	ProcessInputs() (C, error)
	EnsureDependencies(C) error
	Run(C) (R, error)
	ExportOutput(C, R) error
}

// StepRunner runs the phases of a Step and converts the failures into an exit code.
type StepRunner[C any, R any] struct {
	logger log.Logger
}

// NewStepRunner ...
func NewStepRunner[C any, R any](logger log.Logger) StepRunner[C, R] {
	return StepRunner[C, R]{
		logger: logger,
	}
}

// Run returns the exit code of the Step.
func (r StepRunner[C, R]) Run(step Step[C, R]) int {
	config, err := step.ProcessInputs()
	if err != nil {
		r.logger.Errorf("%s", errorutil.FormattedError(fmt.Errorf("processing Step Inputs failed: %w", err)))
		return 1
	}

	if err := step.EnsureDependencies(config); err != nil {
		r.logger.Errorf("%s", errorutil.FormattedError(fmt.Errorf("installing Step Dependencies failed: %w", err)))
		return 1
	}

	exitCode := 0
	result, err := step.Run(config)
	if err != nil {
		r.logger.Errorf("%s", errorutil.FormattedError(fmt.Errorf("step run failed: %w", err)))
		exitCode = 1
		// outputs are exported even on failure, the partial report and the selected team are still useful
	}

	if err := step.ExportOutput(config, result); err != nil {
		r.logger.Errorf("%s", errorutil.FormattedError(fmt.Errorf("exporting Step Outputs failed: %w", err)))
		return 1
	}

	return exitCode
}
