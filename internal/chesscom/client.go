// Package chesscom imports games from the chess.com published-data API
// into the local store.
package chesscom

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/notnil/chess"
	"github.com/rs/zerolog"

	"github.com/kejdas/local-chess-analyzer/internal/store"
)

const (
	defaultBaseURL = "https://api.chess.com/pub"
	userAgent      = "local-chess-analyzer/1.0"
)

// ErrUserNotFound is returned when chess.com does not know the player.
var ErrUserNotFound = errors.New("chess.com user not found")

// Client talks to the chess.com published-data API.
type Client struct {
	baseURL string
	http    *http.Client
	log     zerolog.Logger
}

func NewClient(log zerolog.Logger) *Client {
	return &Client{
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
		log:     log.With().Str("component", "chesscom").Logger(),
	}
}

// ArchiveGame is one game as published in a monthly archive.
type ArchiveGame struct {
	URL         string `json:"url"`
	PGN         string `json:"pgn"`
	TimeControl string `json:"time_control"`
	EndTime     int64  `json:"end_time"`
	Rated       bool   `json:"rated"`
	White       Player `json:"white"`
	Black       Player `json:"black"`
}

// Player is one side of an archived game.
type Player struct {
	Username string `json:"username"`
	Rating   int    `json:"rating"`
	Result   string `json:"result"`
}

// Archives lists the player's monthly archive URLs, oldest first.
func (c *Client) Archives(ctx context.Context, username string) ([]string, error) {
	var body struct {
		Archives []string `json:"archives"`
	}
	url := fmt.Sprintf("%s/player/%s/games/archives", c.baseURL, strings.ToLower(username))
	if err := c.getJSON(ctx, url, &body); err != nil {
		return nil, err
	}
	return body.Archives, nil
}

// ArchiveGames fetches the games of one monthly archive.
func (c *Client) ArchiveGames(ctx context.Context, archiveURL string) ([]ArchiveGame, error) {
	var body struct {
		Games []ArchiveGame `json:"games"`
	}
	if err := c.getJSON(ctx, archiveURL, &body); err != nil {
		return nil, err
	}
	return body.Games, nil
}

// AllGames walks the player's monthly archives, newest months last.
// lastMonths > 0 restricts the walk to the most recent archives.
// Progress, if non-nil, is called after each archive with the games
// seen so far.
func (c *Client) AllGames(ctx context.Context, username string, lastMonths int, progress func(fetched int)) ([]ArchiveGame, error) {
	archives, err := c.Archives(ctx, username)
	if err != nil {
		return nil, err
	}
	if lastMonths > 0 && len(archives) > lastMonths {
		archives = archives[len(archives)-lastMonths:]
	}
	var all []ArchiveGame
	for _, url := range archives {
		games, err := c.ArchiveGames(ctx, url)
		if err != nil {
			return nil, fmt.Errorf("archive %s: %w", url, err)
		}
		all = append(all, games...)
		if progress != nil {
			progress(len(all))
		}
	}
	c.log.Info().Str("username", username).
		Int("archives", len(archives)).Int("games", len(all)).
		Msg("fetched game archives")
	return all, nil
}

func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusNotFound:
		io.Copy(io.Discard, resp.Body)
		return ErrUserNotFound
	case resp.StatusCode != http.StatusOK:
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("fetch %s: unexpected status %d", url, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", url, err)
	}
	return nil
}

// ToGame converts an archived game into a store row. The PGN headers
// are the source of truth for the players and result; games whose PGN
// does not parse are rejected.
func (g ArchiveGame) ToGame() (store.Game, error) {
	if strings.TrimSpace(g.PGN) == "" {
		return store.Game{}, errors.New("archived game has no PGN")
	}
	opt, err := chess.PGN(strings.NewReader(g.PGN))
	if err != nil {
		return store.Game{}, fmt.Errorf("parse archived PGN: %w", err)
	}
	parsed := chess.NewGame(opt)
	row := store.Game{
		ChessComID:  gameID(g.URL),
		PGN:         g.PGN,
		WhitePlayer: tag(parsed, "White", g.White.Username),
		BlackPlayer: tag(parsed, "Black", g.Black.Username),
		Result:      tag(parsed, "Result", "*"),
		GameDate:    tag(parsed, "Date", ""),
	}
	if row.ChessComID == "" {
		return store.Game{}, errors.New("archived game has no URL")
	}
	return row, nil
}

func tag(g *chess.Game, key, fallback string) string {
	if tp := g.GetTagPair(key); tp != nil && tp.Value != "" {
		return tp.Value
	}
	return fallback
}

// gameID extracts the numeric id from a game URL such as
// https://www.chess.com/game/live/1234567.
func gameID(url string) string {
	url = strings.TrimRight(url, "/")
	i := strings.LastIndexByte(url, '/')
	if i < 0 {
		return url
	}
	return url[i+1:]
}
