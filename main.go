package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"fiddlegg/internal/bridge"
	"fiddlegg/internal/config"
	"fiddlegg/internal/logging"
)

var version = "dev" // set during build

func main() {
	cobra.CheckErr(newRootCmd().Execute())
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "fiddlegg",
		Short:         "League of Legends profiles and match history",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Long: `FiddleGG looks up League of Legends players through the FiddleGG backend
and resolves champion, item and profile art from Riot's Data Dragon CDN.

Settings are read from FIDDLEGG_* environment variables or a .env file:
  FIDDLEGG_API_URL           backend base URL (http://localhost:3333/api)
  FIDDLEGG_CDN_URL           Data Dragon host (https://ddragon.leagueoflegends.com)
  FIDDLEGG_STORE             sqlite, file or memory (sqlite)
  FIDDLEGG_DATA_DIR          where cached state is kept
  FIDDLEGG_LISTEN            bridge address for "serve" (127.0.0.1:8787)
  FIDDLEGG_LOG_LEVEL         debug, info, warn or error (info)`,
	}

	root.AddCommand(
		newServeCmd(),
		newProfileCmd(),
		newVersionCmd(),
		newHistoryCmd(),
	)
	return root
}

// setup loads config and a logger for a command
func setup(cmd *cobra.Command) (config.Config, *logrus.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, err
	}
	log, err := logging.New(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr())
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, log, nil
}

// openApp builds an App that reports events to the log
func openApp(cmd *cobra.Command) (*App, error) {
	cfg, log, err := setup(cmd)
	if err != nil {
		return nil, err
	}
	return NewApp(cfg, log, logEmitter{log: log})
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the local bridge for the frontend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(cmd)
			if err != nil {
				return err
			}

			hub := bridge.NewHub(log)
			go hub.Run()
			defer hub.Stop()

			app, err := NewApp(cfg, log, hub)
			if err != nil {
				return err
			}
			defer app.shutdown()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			app.startup(ctx)

			server := &http.Server{
				Addr:              cfg.Listen,
				Handler:           bridge.NewRouter(app, hub, log),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				log.WithField("addr", cfg.Listen).Info("Bridge listening")
				errCh <- server.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("bridge server: %w", err)
				}
				return nil
			case <-ctx.Done():
			}

			log.Info("Shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		},
	}
}

func newProfileCmd() *cobra.Command {
	var pages int

	cmd := &cobra.Command{
		Use:   "profile <name#tag>",
		Short: "Show a player's ranks, mastery and recent matches",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			gameName, tagLine, err := parseRiotID(args[0])
			if err != nil {
				return err
			}
			app, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer app.shutdown()

			ctx := cmd.Context()
			update, err := app.SearchSummoner(ctx, gameName, tagLine)
			if err != nil {
				return err
			}
			printProfile(cmd.OutOrStdout(), update)

			views := app.LoadMatchesSync(ctx, pages)
			printMatches(cmd.OutOrStdout(), views)
			return nil
		},
	}
	cmd.Flags().IntVar(&pages, "pages", 1, "number of match pages to load")
	return cmd
}

func newVersionCmd() *cobra.Command {
	var refresh bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the current Data Dragon version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer app.shutdown()

			v := app.Version(cmd.Context(), refresh)
			if v.Fallback {
				fmt.Fprintf(cmd.OutOrStdout(), "%s (fallback)\n", v.Value)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (resolved %s)\n", v.Value, v.ResolvedAt.Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().BoolVar(&refresh, "refresh", false, "skip the cached version")
	return cmd
}

func newHistoryCmd() *cobra.Command {
	var clearAll bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List or clear recent searches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer app.shutdown()

			if clearAll {
				if err := app.ClearHistory(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "History cleared")
				return nil
			}

			items, err := app.History(cmd.Context())
			if err != nil {
				return err
			}
			if len(items) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No recent searches")
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			for _, item := range items {
				fmt.Fprintf(w, "%s#%s\tlevel %d\t%s\n", item.GameName, item.TagLine, item.SummonerLevel,
					time.UnixMilli(item.SearchedAt).Format("2006-01-02 15:04"))
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&clearAll, "clear", false, "forget every search")
	return cmd
}

func printProfile(out io.Writer, update *bridge.SummonerUpdate) {
	s := update.Summoner
	fmt.Fprintf(out, "%s#%s  level %d\n", s.GameName, s.TagLine, s.SummonerLevel)
	if update.IconURL != "" {
		fmt.Fprintf(out, "icon: %s\n", update.IconURL)
	}
	for _, r := range update.Ranks {
		fmt.Fprintf(out, "%-12s %s %s %dLP  %dW %dL (%.0f%%)\n",
			r.QueueLabel, r.Tier, r.Rank, r.LeaguePoints, r.Wins, r.Losses, r.WinRate)
	}
	for i, m := range update.Mastery {
		if i == 3 {
			break
		}
		fmt.Fprintf(out, "mastery: %s level %d (%d pts)\n", m.ChampionName, m.ChampionLevel, m.ChampionPoints)
	}
}

func printMatches(out io.Writer, views []bridge.MatchView) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, v := range views {
		s := v.Summary
		result := "Defeat"
		if s.Win {
			result = "Victory"
		}
		fmt.Fprintf(w, "%s\t%s\t%d/%d/%d\t%s KDA\t%d CS (%s/min)\t%s\n",
			result, s.Champion, s.Kills, s.Deaths, s.Assists, s.KDA, s.CS, s.CSPerMin, s.Duration)
	}
	w.Flush()
}
