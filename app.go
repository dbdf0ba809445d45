package main

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"fiddlegg/internal/api"
	"fiddlegg/internal/bridge"
	"fiddlegg/internal/config"
	"fiddlegg/internal/ddragon"
	"fiddlegg/internal/history"
	"fiddlegg/internal/hydrate"
	"fiddlegg/internal/matches"
	"fiddlegg/internal/store"
)

// App struct
type App struct {
	cfg     config.Config
	log     logrus.FieldLogger
	emitter bridge.Emitter

	store     store.Store
	versions  *ddragon.VersionResolver
	assets    *ddragon.AssetCache
	champions *ddragon.ChampionMapper
	api       *api.Client
	loader    *matches.Loader
	hydrator  *hydrate.Hydrator
	history   *history.History

	mu       sync.RWMutex
	summoner *api.Summoner

	// searchMu orders search commits; searchGen counts started searches
	searchMu  sync.Mutex
	searchGen uint64
}

// NewApp wires every component from cfg. Events go to emitter.
func NewApp(cfg config.Config, log logrus.FieldLogger, emitter bridge.Emitter) (*App, error) {
	st, err := openStore(cfg)
	if err != nil {
		return nil, err
	}
	return newApp(cfg, log, emitter, st), nil
}

func newApp(cfg config.Config, log logrus.FieldLogger, emitter bridge.Emitter, st store.Store) *App {
	a := &App{
		cfg:     cfg,
		log:     log.WithField("component", "app"),
		emitter: emitter,
		store:   st,
	}

	cdnOpts := []ddragon.Option{
		ddragon.WithBaseURL(cfg.CDNURL),
		ddragon.WithTimeout(cfg.CDNTimeout),
		ddragon.WithFallbackVersion(cfg.FallbackVersion),
		ddragon.WithLogger(log),
	}
	a.versions = ddragon.NewVersionResolver(st, cdnOpts...)
	a.assets = ddragon.NewAssetCache(a.versions, cdnOpts...)
	a.champions = ddragon.NewChampionMapper(a.assets, cdnOpts...)

	a.api = api.NewClient(
		api.WithBaseURL(cfg.APIURL),
		api.WithTimeout(cfg.APITimeout),
		api.WithLogger(log),
	)
	a.loader = matches.NewLoader(a.api,
		matches.WithPageSize(cfg.PageSize),
		matches.WithLogger(log),
		matches.WithOnChange(a.onMatchesChange),
	)
	a.hydrator = hydrate.New(a.assets,
		hydrate.WithLogger(log),
		hydrate.WithOnChange(a.onAssetChange),
	)
	a.history = history.New(st, history.WithLogger(log))
	return a
}

func openStore(cfg config.Config) (store.Store, error) {
	switch cfg.Store {
	case config.StoreMemory:
		return store.NewMemoryStore(), nil
	case config.StoreFile:
		return store.NewFileStore(afero.NewOsFs(), cfg.DataDir)
	case config.StoreSQLite:
		return store.NewSQLiteStore(cfg.DataDir)
	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Store)
	}
}

// startup warms the version and champion caches in the background
func (a *App) startup(ctx context.Context) {
	go func() {
		v := a.versions.Resolve(ctx, false)
		a.log.WithField("version", v.Value).Info("Data Dragon ready")
		if err := a.champions.ForceReload(ctx); err != nil {
			a.log.WithError(err).Warn("Failed to load champions")
		}
	}()
}

// shutdown waits for pending asset lookups and closes the store
func (a *App) shutdown() {
	a.hydrator.Wait()
	if err := a.store.Close(); err != nil {
		a.log.WithError(err).Warn("Failed to close store")
	}
}

// Version returns the current Data Dragon version
func (a *App) Version(ctx context.Context, refresh bool) ddragon.Version {
	return a.versions.Resolve(ctx, refresh)
}

// AssetURL resolves one asset URL through the cache
func (a *App) AssetURL(ctx context.Context, key ddragon.AssetKey) (string, error) {
	return a.assets.GetURL(ctx, key)
}

// CurrentSummoner returns the loaded profile, if any
func (a *App) CurrentSummoner() (*api.Summoner, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.summoner, a.summoner != nil
}

func (a *App) setSummoner(s *api.Summoner) {
	a.mu.Lock()
	a.summoner = s
	a.mu.Unlock()
}

// beginSearch starts a search and returns its generation. Starting a
// search makes every earlier one stale.
func (a *App) beginSearch() uint64 {
	a.searchMu.Lock()
	defer a.searchMu.Unlock()
	a.searchGen++
	return a.searchGen
}

// isLatestSearch reports whether no search started after gen
func (a *App) isLatestSearch(gen uint64) bool {
	a.searchMu.Lock()
	defer a.searchMu.Unlock()
	return a.searchGen == gen
}

// commitSearch makes s the current profile and resets the match list to
// it, unless a newer search started after gen. A nil s clears both.
func (a *App) commitSearch(gen uint64, s *api.Summoner) bool {
	a.searchMu.Lock()
	defer a.searchMu.Unlock()
	if a.searchGen != gen {
		return false
	}

	a.setSummoner(s)
	puuid := ""
	if s != nil {
		puuid = s.PUUID
	}
	a.loader.Reset(puuid)
	return true
}
