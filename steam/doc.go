// Package steam wraps the Steam Web API endpoints steamlens uses. Every
// request goes through a caller.Caller, so responses are cached, rate
// limited and protected by the circuit breaker.
//
//	c := steam.New(resilient, steam.Config{APIKey: key, SteamID: id}, log)
//	games, err := c.OwnedGames(ctx)
//	session, err := c.SessionContext(ctx, 570)
package steam
