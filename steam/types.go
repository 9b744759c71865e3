package steam

import (
	"encoding/json"
	"strconv"
)

// Endpoint paths, relative to https://api.steampowered.com.
const (
	EndpointOwnedGames         = "/IPlayerService/GetOwnedGames/v1/"
	EndpointRecentlyPlayed     = "/IPlayerService/GetRecentlyPlayedGames/v1/"
	EndpointPlayerSummaries    = "/ISteamUser/GetPlayerSummaries/v2/"
	EndpointCurrentPlayers     = "/ISteamUserStats/GetNumberOfCurrentPlayers/v1/"
	EndpointNews               = "/ISteamNews/GetNewsForApp/v2/"
	EndpointGlobalAchievements = "/ISteamUserStats/GetGlobalAchievementPercentagesForApp/v2/"
	EndpointPlayerAchievements = "/ISteamUserStats/GetPlayerAchievements/v1/"
	EndpointSchemaForGame      = "/ISteamUserStats/GetSchemaForGame/v2/"
)

// Game is an entry of the owned or recently played games lists. Playtimes
// are in minutes.
type Game struct {
	AppID           int    `json:"appid"`
	Name            string `json:"name"`
	PlaytimeForever int    `json:"playtime_forever"`
	Playtime2Weeks  int    `json:"playtime_2weeks,omitempty"`
}

// PlayerSummary is a public profile.
type PlayerSummary struct {
	SteamID       string `json:"steamid"`
	PersonaName   string `json:"personaname"`
	ProfileURL    string `json:"profileurl"`
	Avatar        string `json:"avatarfull"`
	PersonaState  int    `json:"personastate"`
	GameID        string `json:"gameid,omitempty"`
	GameExtraInfo string `json:"gameextrainfo,omitempty"`
}

// NewsItem is one news post of an app.
type NewsItem struct {
	GID      string `json:"gid"`
	Title    string `json:"title"`
	URL      string `json:"url"`
	Author   string `json:"author"`
	Contents string `json:"contents"`
	Date     int64  `json:"date"`
}

// Percent is a global unlock percentage. The API sends it either as a
// number or as a numeric string.
type Percent float64

// UnmarshalJSON accepts 12.5 and "12.5".
func (p *Percent) UnmarshalJSON(data []byte) error {
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		*p = Percent(f)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*p = Percent(f)
	return nil
}

// AchievementPercent is the global unlock rate of one achievement.
type AchievementPercent struct {
	Name    string  `json:"name"`
	Percent Percent `json:"percent"`
}

// Rarity buckets a percentage the way the library tooling reports it.
func (a AchievementPercent) Rarity() string {
	switch p := float64(a.Percent); {
	case p < 5:
		return "Very Rare"
	case p < 20:
		return "Rare"
	case p < 50:
		return "Uncommon"
	default:
		return "Common"
	}
}

// PlayerAchievement is the owner's progress on one achievement.
type PlayerAchievement struct {
	APIName    string `json:"apiname"`
	Achieved   int    `json:"achieved"`
	UnlockTime int64  `json:"unlocktime"`
}

// Unlocked reports whether the achievement has been earned.
func (a PlayerAchievement) Unlocked() bool { return a.Achieved == 1 }

// SchemaAchievement describes one achievement of a game.
type SchemaAchievement struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	Description string `json:"description,omitempty"`
	Hidden      int    `json:"hidden"`
}

// Schema is the achievement schema of a game.
type Schema struct {
	GameName     string              `json:"gameName"`
	Achievements []SchemaAchievement `json:"achievements"`
}
