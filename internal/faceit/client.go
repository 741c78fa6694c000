// Package faceit provides a minimal client for the FACEIT Data API v4, used
// to find finished matches and download their demos.
package faceit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is the root endpoint for the FACEIT Data API v4.
	DefaultBaseURL = "https://open.faceit.com/data/v4"
	// DefaultDownloadsURL exchanges CDN resource URLs for signed download links.
	DefaultDownloadsURL = "https://open.faceit.com/download/v2/demos/download"
)

// Client is a minimal FACEIT Data API v4 client.
type Client struct {
	BaseURL      string
	DownloadsURL string

	apiKey string
	http   *http.Client
}

// NewClient returns a FACEIT API client authenticated with the given API key.
func NewClient(apiKey string) *Client {
	return &Client{
		BaseURL:      DefaultBaseURL,
		DownloadsURL: DefaultDownloadsURL,
		apiKey:       apiKey,
		http:         &http.Client{Timeout: 30 * time.Second},
	}
}

// Player holds the fields we need from the /players endpoint.
type Player struct {
	PlayerID string `json:"player_id"`
	Nickname string `json:"nickname"`
	Games    struct {
		CS2 struct {
			SkillLevel int    `json:"skill_level"`
			FaceitELO  int    `json:"faceit_elo"`
			Region     string `json:"region"`
		} `json:"cs2"`
	} `json:"games"`
}

// MatchHistoryItem is one entry from /players/{id}/history.
type MatchHistoryItem struct {
	MatchID    string `json:"match_id"`
	Status     string `json:"status"`
	StartedAt  int64  `json:"started_at"`
	FinishedAt int64  `json:"finished_at"`
}

// Finished reports whether the match was played to the end.
func (m MatchHistoryItem) Finished() bool {
	return strings.EqualFold(m.Status, "FINISHED")
}

// MatchDetail holds the fields we need from /matches/{id}.
type MatchDetail struct {
	MatchID    string   `json:"match_id"`
	SkillLevel int      `json:"skill_level"`
	DemoURLs   []string `json:"demo_url"`
	StartedAt  int64    `json:"started_at"`
	Voting     struct {
		Map struct {
			Pick []string `json:"pick"`
		} `json:"map"`
	} `json:"voting"`
}

// MapName returns the picked map name, or empty string if unavailable.
func (m *MatchDetail) MapName() string {
	if len(m.Voting.Map.Pick) > 0 {
		return m.Voting.Map.Pick[0]
	}
	return ""
}

// Started returns the match start as a UTC time.
func (m *MatchDetail) Started() time.Time {
	return time.Unix(m.StartedAt, 0).UTC()
}

// get performs an authenticated GET request and JSON-decodes the body into out.
func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: HTTP %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// GetPlayer looks up a player by FACEIT nickname or, for numeric queries of
// Steam ID64 length, by Steam ID.
func (c *Client) GetPlayer(ctx context.Context, query string) (*Player, error) {
	q := url.Values{}
	if LooksLikeSteamID(query) {
		q.Set("game", "cs2")
		q.Set("game_player_id", query)
	} else {
		q.Set("nickname", query)
	}
	var p Player
	if err := c.get(ctx, "/players?"+q.Encode(), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetMatchHistory returns up to limit recent matches for a player.
func (c *Client) GetMatchHistory(ctx context.Context, playerID string, limit int) ([]MatchHistoryItem, error) {
	var resp struct {
		Items []MatchHistoryItem `json:"items"`
	}
	path := fmt.Sprintf("/players/%s/history?game=cs2&offset=0&limit=%d", url.PathEscape(playerID), limit)
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// GetMatch returns details for a single match, including demo URLs and map.
func (c *Client) GetMatch(ctx context.Context, matchID string) (*MatchDetail, error) {
	var m MatchDetail
	if err := c.get(ctx, "/matches/"+url.PathEscape(matchID), &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// IsKnownBrokenCDN returns true for FACEIT CDN hostnames that have no DNS record.
func IsKnownBrokenCDN(demoURL string) bool {
	return strings.Contains(demoURL, "backblaze.faceit-cdn.net")
}

// ResolveDemoURL exchanges a CDN resource URL for a signed download URL.
// downloadsKey is a Downloads API token, separate from the Data API key.
func (c *Client) ResolveDemoURL(ctx context.Context, resourceURL, downloadsKey string) (string, error) {
	body, err := json.Marshal(map[string]string{"resource_url": resourceURL})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.DownloadsURL, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+downloadsKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		snippet := string(respBody)
		if len(snippet) > 200 {
			snippet = snippet[:200]
		}
		return "", fmt.Errorf("HTTP %d: %s", resp.StatusCode, snippet)
	}

	var result struct {
		Payload struct {
			DownloadURL string `json:"download_url"`
		} `json:"payload"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("decode: %w", err)
	}
	if result.Payload.DownloadURL == "" {
		return "", fmt.Errorf("empty download_url in response")
	}
	return result.Payload.DownloadURL, nil
}

// LooksLikeSteamID returns true if s is a numeric string of at least 15 digits.
func LooksLikeSteamID(s string) bool {
	if len(s) < 15 {
		return false
	}
	_, err := strconv.ParseUint(s, 10, 64)
	return err == nil
}
