package main

import (
	"context"

	"fiddlegg/internal/api"
	"fiddlegg/internal/bridge"
	"fiddlegg/internal/matches"
)

// NextMatches is the "near end of list" signal for puuid. A different
// puuid than the loaded one resets the list first.
func (a *App) NextMatches(ctx context.Context, puuid string) bridge.MatchesView {
	if a.loader.Snapshot().PUUID != puuid {
		a.loader.Reset(puuid)
	}
	a.loader.NearEnd(ctx)
	return a.Matches(ctx)
}

// Matches returns the loaded match list and requests any missing assets
func (a *App) Matches(ctx context.Context) bridge.MatchesView {
	return a.matchesView(ctx, a.loader.Snapshot())
}

// LoadMatchesSync loads up to pages pages and resolves every asset before
// returning. Used by the CLI.
func (a *App) LoadMatchesSync(ctx context.Context, pages int) []bridge.MatchView {
	for i := 0; i < pages; i++ {
		if !a.loader.NearEnd(ctx) {
			break
		}
	}
	snap := a.loader.Snapshot()

	var (
		views     = make([]bridge.MatchView, 0, len(snap.Matches))
		kept      = make([]api.Match, 0, len(snap.Matches))
		champions []string
		items     []int
	)
	for _, m := range snap.Matches {
		summary, ok := matches.Summarize(m, snap.PUUID)
		if !ok {
			continue
		}
		views = append(views, bridge.MatchView{Summary: summary})
		kept = append(kept, m)
		champions = append(champions, summary.Champion)
		items = append(items, summary.Items[:]...)
	}

	a.assets.Preload(ctx, champions, items)
	for i, m := range kept {
		views[i].Assets = a.hydrator.HydrateMatchSync(ctx, m, snap.PUUID)
	}
	return views
}

func (a *App) matchesView(ctx context.Context, snap matches.Snapshot) bridge.MatchesView {
	view := bridge.MatchesView{
		PUUID:   snap.PUUID,
		Matches: make([]bridge.MatchView, 0, len(snap.Matches)),
		HasMore: snap.HasMore,
		State:   snap.Status,
	}
	for _, m := range snap.Matches {
		summary, ok := matches.Summarize(m, snap.PUUID)
		if !ok {
			a.log.WithField("gameId", m.ID()).Debug("Player missing from match participants")
			continue
		}
		view.Matches = append(view.Matches, bridge.MatchView{
			Summary: summary,
			Assets:  a.hydrator.HydrateMatch(ctx, m, snap.PUUID),
		})
	}
	return view
}
