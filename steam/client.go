package steam

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/kbukum/steamlens/caller"
	"github.com/kbukum/steamlens/errors"
	"github.com/kbukum/steamlens/logger"
	"github.com/kbukum/steamlens/validation"
)

// Client calls Steam Web API endpoints through a caller.Caller.
type Client struct {
	cfg    Config
	caller *caller.Caller
	log    *logger.Logger
}

// New creates a Client. A nil log discards output.
func New(c *caller.Caller, cfg Config, log *logger.Logger) *Client {
	cfg.ApplyDefaults()
	return &Client{
		cfg:    cfg,
		caller: c,
		log:    logger.OrNop(log).WithComponent("steam"),
	}
}

// OwnedGames returns the owner's library including free games.
func (c *Client) OwnedGames(ctx context.Context) ([]Game, error) {
	if err := c.requireCredentials(); err != nil {
		return nil, err
	}
	p, err := c.caller.Invoke(ctx, EndpointOwnedGames, c.withKey(caller.Params{
		"steamid":                   c.cfg.SteamID,
		"include_appinfo":           1,
		"include_played_free_games": 1,
	}))
	if err != nil {
		return nil, err
	}
	return decode[[]Game](p, "owned games", "response", "games")
}

// RecentlyPlayed returns the games played in the last two weeks, most
// recent first.
func (c *Client) RecentlyPlayed(ctx context.Context) ([]Game, error) {
	if err := c.requireCredentials(); err != nil {
		return nil, err
	}
	p, err := c.caller.Invoke(ctx, EndpointRecentlyPlayed, c.withKey(caller.Params{
		"steamid": c.cfg.SteamID,
	}))
	if err != nil {
		return nil, err
	}
	games, err := decode[[]Game](p, "recently played games", "response", "games")
	if errors.HasCode(err, errors.ErrCodeNotFound) {
		// No activity in the window is an empty list, not an error.
		return []Game{}, nil
	}
	return games, err
}

// PlayerSummaries returns the public profiles of steamIDs, or of the owner
// when none are given.
func (c *Client) PlayerSummaries(ctx context.Context, steamIDs ...string) ([]PlayerSummary, error) {
	if c.cfg.APIKey == "" {
		return nil, errors.InvalidInput("steam.api_key", "is required for player summaries")
	}
	if len(steamIDs) == 0 {
		if c.cfg.SteamID == "" {
			return nil, errors.InvalidInput("steam.steam_id", "is required when no steam IDs are given")
		}
		steamIDs = []string{c.cfg.SteamID}
	}
	p, err := c.caller.Invoke(ctx, EndpointPlayerSummaries, c.withKey(caller.Params{
		"steamids": strings.Join(steamIDs, ","),
	}))
	if err != nil {
		return nil, err
	}
	return decode[[]PlayerSummary](p, "player summaries", "response", "players")
}

// CurrentPlayers returns the number of players currently in appID.
func (c *Client) CurrentPlayers(ctx context.Context, appID int) (int, error) {
	if err := validAppID(appID); err != nil {
		return 0, err
	}
	p, err := c.caller.Invoke(ctx, EndpointCurrentPlayers, caller.Params{"appid": appID})
	if err != nil {
		return 0, err
	}
	return decode[int](p, appResource("player count", appID), "response", "player_count")
}

// News returns up to count news items of appID.
func (c *Client) News(ctx context.Context, appID, count int) ([]NewsItem, error) {
	if err := validAppID(appID); err != nil {
		return nil, err
	}
	p, err := c.caller.Invoke(ctx, EndpointNews, c.newsParams(appID, count))
	if err != nil {
		return nil, err
	}
	return decode[[]NewsItem](p, appResource("news", appID), "appnews", "newsitems")
}

// GlobalAchievementPercentages returns the global unlock rate of every
// achievement of appID.
func (c *Client) GlobalAchievementPercentages(ctx context.Context, appID int) ([]AchievementPercent, error) {
	if err := validAppID(appID); err != nil {
		return nil, err
	}
	p, err := c.caller.Invoke(ctx, EndpointGlobalAchievements, caller.Params{"gameid": appID})
	if err != nil {
		return nil, err
	}
	return decode[[]AchievementPercent](p, appResource("global achievements", appID), "achievementpercentages", "achievements")
}

// PlayerAchievements returns the owner's progress on appID.
func (c *Client) PlayerAchievements(ctx context.Context, appID int) ([]PlayerAchievement, error) {
	if err := validAppID(appID); err != nil {
		return nil, err
	}
	if err := c.requireCredentials(); err != nil {
		return nil, err
	}
	p, err := c.caller.Invoke(ctx, EndpointPlayerAchievements, c.playerAchievementParams(appID))
	if err != nil {
		return nil, err
	}
	return decode[[]PlayerAchievement](p, appResource("player achievements", appID), "playerstats", "achievements")
}

// Schema returns the achievement schema of appID. Schemas are kept in the
// guide cache.
func (c *Client) Schema(ctx context.Context, appID int) (*Schema, error) {
	if err := validAppID(appID); err != nil {
		return nil, err
	}
	key := schemaKey(appID)
	if v, ok := c.caller.GuideCache().Get(key); ok {
		if s, ok := v.(*Schema); ok {
			return s, nil
		}
	}
	if c.cfg.APIKey == "" {
		return nil, errors.InvalidInput("steam.api_key", "is required for game schemas")
	}
	p, err := c.caller.Invoke(ctx, EndpointSchemaForGame, c.withKey(caller.Params{"appid": appID}))
	if err != nil {
		return nil, err
	}
	s, err := parseSchema(p, appID)
	if err != nil {
		return nil, err
	}
	c.caller.GuideCache().Set(key, s)
	return s, nil
}

func (c *Client) newsParams(appID, count int) caller.Params {
	if count <= 0 {
		count = c.cfg.NewsCount
	}
	return caller.Params{"appid": appID, "count": count, "maxlength": c.cfg.NewsMaxLength}
}

func (c *Client) playerAchievementParams(appID int) caller.Params {
	return c.withKey(caller.Params{"steamid": c.cfg.SteamID, "appid": appID})
}

// withKey adds the API key when one is configured.
func (c *Client) withKey(p caller.Params) caller.Params {
	if c.cfg.APIKey != "" {
		p["key"] = c.cfg.APIKey
	}
	return p
}

func (c *Client) requireCredentials() error {
	if !c.cfg.hasCredentials() {
		return errors.InvalidInput("steam", "api_key and steam_id are required")
	}
	return nil
}

func validAppID(appID int) error {
	return validation.New().Positive("appid", int64(appID)).Validate()
}

func schemaKey(appID int) string { return "schema:" + strconv.Itoa(appID) }

func appResource(what string, appID int) string {
	return fmt.Sprintf("%s for app %d", what, appID)
}

func parseSchema(p caller.Payload, appID int) (*Schema, error) {
	resource := appResource("schema", appID)
	name, err := decode[string](p, resource, "game", "gameName")
	if err != nil {
		return nil, err
	}
	achievements, err := decode[[]SchemaAchievement](p, resource, "game", "availableGameStats", "achievements")
	if errors.HasCode(err, errors.ErrCodeNotFound) {
		// Games without achievements omit availableGameStats.
		achievements, err = []SchemaAchievement{}, nil
	}
	if err != nil {
		return nil, err
	}
	return &Schema{GameName: name, Achievements: achievements}, nil
}

// decode walks path through nested objects of p and decodes the value found
// there into T. A nil payload or a missing path is NOT_FOUND; a value of the
// wrong shape is UPSTREAM_FAILURE.
func decode[T any](p caller.Payload, resource string, path ...string) (T, error) {
	var zero T
	var node any = p
	if p == nil {
		return zero, errors.NotFound(resource, "")
	}
	for _, key := range path {
		obj, ok := node.(map[string]any)
		if !ok {
			return zero, errors.NotFound(resource, "")
		}
		if node, ok = obj[key]; !ok || node == nil {
			return zero, errors.NotFound(resource, "")
		}
	}
	data, err := json.Marshal(node)
	if err != nil {
		return zero, errors.Internal(err)
	}
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		return zero, errors.UpstreamFailure("steam_api", fmt.Errorf("decoding %s: %w", resource, err))
	}
	return out, nil
}
