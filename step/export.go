package step

import (
	"strings"

	"github.com/bitrise-io/go-utils/v2/command"
	"github.com/bitrise-io/go-utils/v2/fileutil"
)

const reportFileMode = 0644

func exportEnvironmentWithEnvman(cmdFactory command.Factory, keyStr, valueStr string) error {
	cmd := cmdFactory.Create("envman", []string{"add", "--key", keyStr}, &command.Opts{Stdin: strings.NewReader(valueStr)})
	return cmd.Run()
}

// ExportOutputFileContent writes content to destinationPth and exports the path under envKey.
func ExportOutputFileContent(fileManager fileutil.FileManager, cmdFactory command.Factory, content, destinationPth, envKey string) error {
	if err := fileManager.Write(destinationPth, content, reportFileMode); err != nil {
		return err
	}

	return exportEnvironmentWithEnvman(cmdFactory, envKey, destinationPth)
}
