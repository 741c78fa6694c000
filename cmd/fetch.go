package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pable/go-cs-contagion/internal/demo"
	"github.com/pable/go-cs-contagion/internal/faceit"
	"github.com/pable/go-cs-contagion/internal/model"
	"github.com/pable/go-cs-contagion/internal/storage"
)

// fetch command flags.
var (
	// fetchPlayer is the FACEIT nickname or Steam ID64 whose history is walked.
	fetchPlayer string
	// fetchMap restricts ingestion to demos on this map (e.g. "de_mirage").
	fetchMap string
	// fetchCount is the number of matches to ingest.
	fetchCount int
)

// fetchCmd downloads FACEIT demos and stores their rosters and kills.
var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download and ingest FACEIT matches",
	Long: `Walks the recent match history of a FACEIT player, downloads each demo,
and stores its roster and kill events keyed by the FACEIT match ID. Kill
times are anchored at the match start reported by FACEIT.

Keys are read from FACEIT_API_KEY (or ~/.contagion/faceit_api_key) and,
for demos on the legacy CDN, FACEIT_DOWNLOADS_KEY (or
~/.contagion/faceit_downloads_key).

Example:
  contagion fetch --player <nickname> --count 20 --map de_mirage`,
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().StringVar(&fetchPlayer, "player", "", "FACEIT nickname or Steam ID64 (required)")
	fetchCmd.Flags().StringVar(&fetchMap, "map", "", "only ingest matches on this map (e.g. de_mirage)")
	fetchCmd.Flags().IntVar(&fetchCount, "count", 10, "number of matches to ingest")
	_ = fetchCmd.MarkFlagRequired("player")
}

func runFetch(cmd *cobra.Command, args []string) error {
	apiKey, err := loadKey("FACEIT_API_KEY", "faceit_api_key")
	if err != nil {
		return fmt.Errorf("FACEIT API key not found: set FACEIT_API_KEY or create ~/.contagion/faceit_api_key")
	}

	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	return doFetch(cmd, db, faceit.NewClient(apiKey))
}

func doFetch(cmd *cobra.Command, db *storage.DB, client *faceit.Client) error {
	ctx := cmd.Context()

	fp, err := client.GetPlayer(ctx, fetchPlayer)
	if err != nil {
		return fmt.Errorf("lookup player %q: %w", fetchPlayer, err)
	}
	fmt.Printf("Player: %s  level=%d  ELO=%d  region=%s\n",
		fp.Nickname, fp.Games.CS2.SkillLevel, fp.Games.CS2.FaceitELO, fp.Games.CS2.Region)

	// Over-fetch history to leave room for map filtering and skips.
	history, err := client.GetMatchHistory(ctx, fp.PlayerID, max(fetchCount*5, 50))
	if err != nil {
		return fmt.Errorf("match history: %w", err)
	}

	tmpDir, err := os.MkdirTemp("", "contagion-*")
	if err != nil {
		return fmt.Errorf("temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	downloadsKey, _ := loadKey("FACEIT_DOWNLOADS_KEY", "faceit_downloads_key")

	ingested := 0
	for _, item := range history {
		if ingested >= fetchCount {
			break
		}
		if !item.Finished() {
			continue
		}
		id := model.MatchID(item.MatchID)
		exists, err := db.MatchExists(id)
		if err != nil {
			return fmt.Errorf("check match: %w", err)
		}
		if exists {
			fmt.Printf("  [skip] %s: already stored\n", id)
			ingested++
			continue
		}

		match, err := client.GetMatch(ctx, item.MatchID)
		if err != nil {
			logger.Warn("match lookup failed", "match_id", item.MatchID, "err", err)
			continue
		}
		mapName := match.MapName()
		if fetchMap != "" && mapName != fetchMap {
			continue
		}
		if len(match.DemoURLs) == 0 {
			fmt.Printf("  [skip] %s: no demo URL\n", id)
			continue
		}

		fmt.Printf("[%d/%d] %s  map=%-15s  started=%s\n",
			ingested+1, fetchCount, id, mapName, match.Started().Format("2006-01-02 15:04"))

		demoURL := match.DemoURLs[0]
		if faceit.IsKnownBrokenCDN(demoURL) {
			if downloadsKey == "" {
				logger.Warn("demo CDN URL won't resolve; set FACEIT_DOWNLOADS_KEY", "match_id", item.MatchID)
			} else if resolved, err := client.ResolveDemoURL(ctx, demoURL, downloadsKey); err != nil {
				logger.Warn("URL resolution failed", "match_id", item.MatchID, "err", err)
			} else {
				demoURL = resolved
			}
		}

		demPath, err := client.DownloadDemo(ctx, demoURL, tmpDir, item.MatchID)
		if err != nil {
			logger.Error("download failed", "match_id", item.MatchID, "err", err)
			continue
		}
		m, err := demo.ParseDemo(demPath, demo.Options{MatchID: id, Start: match.Started()})
		os.Remove(demPath)
		if err != nil {
			logger.Error("parse failed", "match_id", item.MatchID, "err", err)
			continue
		}

		if err := db.InsertMatch(m.ID, m.Teams, m.Kills, "faceit"); err != nil {
			return fmt.Errorf("store match %s: %w", m.ID, err)
		}
		fmt.Printf("  stored: %d players, %d kills\n", m.Teams.Len(), m.Kills.Len())
		ingested++
	}

	fmt.Printf("\nDone: %d/%d matches ingested\n", ingested, fetchCount)
	return nil
}

// loadKey returns a secret from the environment or ~/.contagion/<file>.
func loadKey(env, file string) (string, error) {
	if v := os.Getenv(env); v != "" {
		return v, nil
	}
	data, err := os.ReadFile(filepath.Join(mustUserHome(), ".contagion", file))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
