package steam

import "time"

// Config configures the Steam endpoint client.
type Config struct {
	// APIKey is sent as the key parameter. Endpoints that need it fail with
	// INVALID_INPUT when it is empty.
	APIKey string `mapstructure:"api_key"`
	// SteamID is the 64-bit ID of the library owner.
	SteamID string `mapstructure:"steam_id"`
	// NewsCount is the number of news items fetched for a session.
	NewsCount int `mapstructure:"news_count" validate:"gte=1"`
	// NewsMaxLength truncates news contents server-side.
	NewsMaxLength int `mapstructure:"news_max_length" validate:"gte=0"`
	// SessionTTL is how long an assembled session is kept in the tool cache.
	// Zero keeps the tool cache TTL.
	SessionTTL time.Duration `mapstructure:"session_ttl"`
}

// ApplyDefaults fills zero values.
func (c *Config) ApplyDefaults() {
	if c.NewsCount <= 0 {
		c.NewsCount = 3
	}
	if c.NewsMaxLength == 0 {
		c.NewsMaxLength = 500
	}
}

func (c *Config) hasCredentials() bool {
	return c.APIKey != "" && c.SteamID != ""
}
