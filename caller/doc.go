// Package caller composes the response cache, token bucket, circuit breaker,
// retry policy and dispatcher into a single resilient path for upstream calls.
//
// Invoke checks the API cache first; a hit never consumes a token or touches
// the breaker. On a miss it waits a bounded time for a token, then runs the
// request as breaker(retry(request)). Successful payloads are cached.
// Statuses other than 2xx, 429 and 5xx, and 2xx responses without a body,
// yield a nil payload that is not cached and never counts against the
// breaker. Every failure is returned as an *errors.AppError.
//
//	c := caller.New(client, caller.DefaultConfig())
//	payload, err := c.Invoke(ctx, "/ISteamUser/GetPlayerSummaries/v0002/", caller.Params{
//	    "key":      apiKey,
//	    "steamids": steamID,
//	})
package caller
