package credentials

import (
	"fmt"

	"github.com/bitrise-io/go-utils/v2/command"
	"github.com/bitrise-io/go-xcode/appleauth"
	"github.com/kballard/go-shellquote"
)

// CommandSource runs a user provided command and uses its output as the password, for example a password manager CLI.
type CommandSource struct {
	command    string
	cmdFactory command.Factory
}

// NewCommandSource ...
func NewCommandSource(command string, cmdFactory command.Factory) CommandSource {
	return CommandSource{command: command, cmdFactory: cmdFactory}
}

// Description ...
func (s CommandSource) Description() string {
	return "Apple ID password provided by the password command."
}

// Fetch ...
func (s CommandSource) Fetch(string) (*appleauth.AppleID, error) {
	if s.command == "" {
		return nil, nil
	}

	args, err := shellquote.Split(s.command)
	if err != nil {
		return nil, fmt.Errorf("failed to parse password command: %w", err)
	}
	if len(args) == 0 {
		return nil, nil
	}

	cmd := s.cmdFactory.Create(args[0], args[1:], nil)
	password, err := cmd.RunAndReturnTrimmedOutput()
	if err != nil {
		return nil, fmt.Errorf("password command failed: %w", err)
	}
	if password == "" {
		return nil, fmt.Errorf("password command returned an empty password")
	}

	return &appleauth.AppleID{Password: password}, nil
}
