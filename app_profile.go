package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"fiddlegg/internal/api"
	"fiddlegg/internal/bridge"
	"fiddlegg/internal/ddragon"
	"fiddlegg/internal/history"
)

// parseRiotID splits "gameName#tagLine"
func parseRiotID(id string) (string, string, error) {
	i := strings.LastIndex(id, "#")
	if i <= 0 || i == len(id)-1 {
		return "", "", fmt.Errorf("invalid Riot ID %q, expected name#tag", id)
	}
	return strings.TrimSpace(id[:i]), strings.TrimSpace(id[i+1:]), nil
}

// SearchSummoner looks a player up and makes it the current profile. On
// failure the profile is cleared and an error toast is emitted. A search
// overtaken by a newer one leaves the current profile alone and returns
// bridge.ErrSuperseded.
func (a *App) SearchSummoner(ctx context.Context, gameName, tagLine string) (*bridge.SummonerUpdate, error) {
	gen := a.beginSearch()
	log := a.log.WithField("riotId", gameName+"#"+tagLine)

	summoner, err := a.api.SearchUser(ctx, gameName, tagLine)
	if err != nil {
		if !a.commitSearch(gen, nil) {
			log.WithError(err).Debug("Dropping failure of superseded search")
			return nil, err
		}
		log.WithError(err).Warn("Summoner search failed")
		a.emitToast(err)
		a.emitSummoner(&bridge.SummonerUpdate{})
		return nil, err
	}

	if !a.commitSearch(gen, summoner) {
		log.Debug("Dropping superseded search")
		return nil, bridge.ErrSuperseded
	}

	if _, err := a.history.Add(ctx, *summoner); err != nil {
		a.log.WithError(err).Warn("Failed to save search history")
	}

	update := &bridge.SummonerUpdate{Summoner: summoner}

	var g errgroup.Group
	g.Go(func() error {
		if url, err := a.assets.ProfileIcon(ctx, summoner.ProfileIconID); err == nil {
			update.IconURL = url
		}
		return nil
	})
	g.Go(func() error {
		ranks, err := a.Ranks(ctx, summoner.ID)
		if err != nil {
			a.log.WithError(err).Warn("Failed to load ranks")
			return nil
		}
		update.Ranks = ranks
		return nil
	})
	g.Go(func() error {
		mastery, err := a.Masteries(ctx, summoner.PUUID)
		if err != nil {
			a.log.WithError(err).Warn("Failed to load champion mastery")
			return nil
		}
		update.Mastery = mastery
		return nil
	})
	_ = g.Wait()

	if !a.isLatestSearch(gen) {
		log.Debug("Dropping superseded search")
		return nil, bridge.ErrSuperseded
	}
	a.emitSummoner(update)
	return update, nil
}

// Ranks returns the ranked entries of a summoner, solo queue first
func (a *App) Ranks(ctx context.Context, summonerID string) ([]bridge.RankView, error) {
	entries, err := a.api.RankProfile(ctx, summonerID)
	if err != nil {
		return nil, err
	}
	api.SortRanks(entries)
	return lo.Map(entries, func(e api.RankEntry, _ int) bridge.RankView {
		return bridge.RankView{RankEntry: e, QueueLabel: e.Label(), WinRate: e.WinRate()}
	}), nil
}

// Masteries resolves each mastery's champion id to its key and icon.
// Champions missing from the manifest are skipped.
func (a *App) Masteries(ctx context.Context, puuid string) ([]bridge.MasteryView, error) {
	entries, err := a.api.ChampionMastery(ctx, puuid)
	if err != nil {
		return nil, err
	}

	views := make([]bridge.MasteryView, 0, len(entries))
	for _, m := range entries {
		info, err := a.champions.Lookup(ctx, strconv.Itoa(m.ChampionID))
		if errors.Is(err, ddragon.ErrMappingNotFound) {
			a.log.WithField("championId", m.ChampionID).Warn("Unknown champion in mastery list")
			continue
		}
		if err != nil {
			return nil, err
		}

		view := bridge.MasteryView{
			ChampionID:     m.ChampionID,
			ChampionKey:    info.Key,
			ChampionName:   info.Name,
			ChampionLevel:  m.ChampionLevel,
			ChampionPoints: m.ChampionPoints,
		}
		if url, err := a.assets.ChampionIcon(ctx, info.Key); err == nil {
			view.IconURL = url
		}
		views = append(views, view)
	}
	return views, nil
}

// History lists recent searches
func (a *App) History(ctx context.Context) ([]history.Item, error) {
	return a.history.List(ctx)
}

// RemoveHistory forgets one search
func (a *App) RemoveHistory(ctx context.Context, gameName, tagLine string) ([]history.Item, error) {
	return a.history.Remove(ctx, gameName, tagLine)
}

// ClearHistory forgets every search
func (a *App) ClearHistory(ctx context.Context) error {
	return a.history.Clear(ctx)
}
