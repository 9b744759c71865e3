// Package httpclient is the outbound HTTP transport for upstream JSON APIs.
//
// It owns only protocol concerns: URL building, default headers, the
// per-request timeout, reading the body and classifying the outcome into a
// typed *Error. Rate limiting, retries and circuit breaking live in the
// caller package, which wraps this client.
//
//	client, err := httpclient.New(httpclient.Config{
//	    BaseURL: "https://api.steampowered.com",
//	    Timeout: 10 * time.Second,
//	})
//	resp, err := client.Get(ctx, "/ISteamUser/GetPlayerSummaries/v0002/", query)
package httpclient
