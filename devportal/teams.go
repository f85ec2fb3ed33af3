package devportal

import (
	"context"
	"fmt"
)

// Team ...
type Team struct {
	TeamID string `json:"teamId"`
	Name   string `json:"name"`
	Type   string `json:"type"`
	Status string `json:"status"`
}

func (t Team) String() string {
	return fmt.Sprintf("%s %s (%s)", t.TeamID, t.Name, t.Type)
}

// Teams lists the teams the logged in user is a member of.
func (c *Client) Teams(ctx context.Context) ([]Team, error) {
	c.mu.Lock()
	cached := c.teams
	c.mu.Unlock()
	if cached != nil {
		return cached, nil
	}

	var resp struct {
		Teams []Team `json:"teams"`
	}
	if err := c.portalRequest(ctx, "account/listTeams.action", nil, false, &resp); err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}

	teams := resp.Teams
	if teams == nil {
		teams = []Team{}
	}

	c.mu.Lock()
	c.teams = teams
	c.mu.Unlock()

	return teams, nil
}

// SelectTeam selects the team used by the team scoped requests and returns its ID.
//
// The preferred team is used when the account is a member of it, a single team is selected without asking,
// otherwise the TeamChooser decides.
func (c *Client) SelectTeam(ctx context.Context) (string, error) {
	teams, err := c.Teams(ctx)
	if err != nil {
		return "", err
	}
	if len(teams) == 0 {
		return "", NoTeamsError{Username: c.Username()}
	}

	if c.preferredTeamID != "" {
		if team, ok := findTeam(teams, c.preferredTeamID); ok {
			c.SetTeamID(team.TeamID)
			c.logger.Debugf("Using preferred team: %s", team)
			return team.TeamID, nil
		}
		c.logger.Warnf("Couldn't find team with ID '%s', available teams:", c.preferredTeamID)
		for _, team := range teams {
			c.logger.Printf("- %s", team)
		}
	}

	if len(teams) == 1 {
		c.SetTeamID(teams[0].TeamID)
		return teams[0].TeamID, nil
	}

	if c.teamChooser == nil {
		return "", MultipleTeamsError{Teams: teams}
	}

	chosen, err := c.teamChooser.ChooseTeam(teams)
	if err != nil {
		return "", fmt.Errorf("failed to choose team: %w", err)
	}
	team, ok := findTeam(teams, chosen.TeamID)
	if !ok {
		return "", TeamNotFoundError{TeamID: chosen.TeamID}
	}

	c.SetTeamID(team.TeamID)
	c.logger.Printf("Selected team: %s", team)
	c.logger.Printf("To skip this prompt next time, set the FASTLANE_TEAM_ID environment variable to %s", team.TeamID)

	return team.TeamID, nil
}

func (c *Client) ensureTeamID(ctx context.Context) (string, error) {
	if teamID := c.TeamID(); teamID != "" {
		return teamID, nil
	}
	return c.SelectTeam(ctx)
}

func findTeam(teams []Team, teamID string) (Team, bool) {
	for _, team := range teams {
		if team.TeamID == teamID {
			return team, true
		}
	}
	return Team{}, false
}
