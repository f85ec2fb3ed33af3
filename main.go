package main

import (
	"os"

	"github.com/bitrise-io/go-steputils/v2/stepconf"
	"github.com/bitrise-io/go-utils/v2/command"
	"github.com/bitrise-io/go-utils/v2/env"
	"github.com/bitrise-io/go-utils/v2/fileutil"
	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/bitrise-io/go-utils/v2/pathutil"

	"github.com/bitrise-steplib/steps-spaceship/step"
	"github.com/bitrise-steplib/steps-spaceship/steprunner"
)

func main() {
	os.Exit(run())
}

func run() int {
	logger := log.NewLogger()
	reporter := createPortalReporter(logger)

	runner := steprunner.NewStepRunner[step.Config, step.RunResult](logger)
	return runner.Run(reporter)
}

func createPortalReporter(logger log.Logger) step.PortalReporter {
	envRepository := env.NewRepository()
	inputParser := stepconf.NewInputParser(envRepository)
	pathChecker := pathutil.NewPathChecker()
	pathModifier := pathutil.NewPathModifier()
	fileManager := fileutil.NewFileManager()
	cmdFactory := command.NewFactory(envRepository)

	return step.NewPortalReporter(inputParser, envRepository, pathChecker, pathModifier, fileManager, logger, cmdFactory)
}
