package main

import "context"

// resolvedTeamID caches the team id for inline (--sync) write paths in
// this process, mirroring the worker's and sync engine's own per-process
// caches.
var resolvedTeamID string

func ensureTeamFor(ctx context.Context) error {
	if resolvedTeamID != "" {
		return nil
	}
	if cfg.TeamKey != "" {
		team, err := client.ResolveTeam(ctx, cfg.TeamKey)
		if err != nil {
			return err
		}
		resolvedTeamID = team.ID
		return nil
	}
	teams, err := client.ListTeams(ctx)
	if err != nil {
		return err
	}
	if len(teams) > 0 {
		resolvedTeamID = teams[0].ID
	}
	return nil
}
