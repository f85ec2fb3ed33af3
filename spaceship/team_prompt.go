package spaceship

import (
	"fmt"

	"github.com/charmbracelet/huh"

	"github.com/bitrise-steplib/steps-spaceship/devportal"
)

// PromptTeamChooser asks the user on the terminal which team to use.
type PromptTeamChooser struct{}

// NewPromptTeamChooser ...
func NewPromptTeamChooser() PromptTeamChooser {
	return PromptTeamChooser{}
}

// ChooseTeam ...
func (PromptTeamChooser) ChooseTeam(teams []devportal.Team) (devportal.Team, error) {
	options := make([]huh.Option[string], 0, len(teams))
	for i, team := range teams {
		options = append(options, huh.NewOption(fmt.Sprintf("%d) %s", i+1, team), team.TeamID))
	}

	var selected string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Multiple teams found on the Developer Portal, select the team you want to use:").
				Description("Set the FASTLANE_TEAM_ID environment variable to skip this question.").
				Options(options...).
				Value(&selected),
		),
	)
	if err := form.Run(); err != nil {
		return devportal.Team{}, fmt.Errorf("team selection failed: %w", err)
	}

	for _, team := range teams {
		if team.TeamID == selected {
			return team, nil
		}
	}
	return devportal.Team{}, devportal.TeamNotFoundError{TeamID: selected}
}
