package steam

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/kbukum/steamlens/caller"
	"github.com/kbukum/steamlens/errors"
	"github.com/kbukum/steamlens/httpclient"
	"github.com/kbukum/steamlens/resilience"
)

const testAppID = 570

// fakeSteam serves canned responses per endpoint path and records the query
// of every request.
type fakeSteam struct {
	mu        sync.Mutex
	responses map[string]any
	status    map[string]int
	queries   map[string][]map[string]string
}

func newFakeSteam(t *testing.T) (*fakeSteam, *httptest.Server) {
	t.Helper()
	f := &fakeSteam{
		responses: map[string]any{
			EndpointOwnedGames: map[string]any{"response": map[string]any{
				"game_count": 2,
				"games": []map[string]any{
					{"appid": 570, "name": "Dota 2", "playtime_forever": 1200},
					{"appid": 440, "name": "Team Fortress 2", "playtime_forever": 30, "playtime_2weeks": 30},
				},
			}},
			EndpointRecentlyPlayed: map[string]any{"response": map[string]any{"total_count": 0}},
			EndpointPlayerSummaries: map[string]any{"response": map[string]any{
				"players": []map[string]any{{"steamid": "1", "personaname": "gaben"}},
			}},
			EndpointCurrentPlayers: map[string]any{"response": map[string]any{"player_count": 812345, "result": 1}},
			EndpointNews: map[string]any{"appnews": map[string]any{
				"appid": 570,
				"newsitems": []map[string]any{
					{"gid": "1", "title": "Patch 7.36", "url": "https://example.com/1"},
					{"gid": "2", "title": "Older"},
				},
			}},
			EndpointGlobalAchievements: map[string]any{"achievementpercentages": map[string]any{
				"achievements": []map[string]any{
					{"name": "WIN_ONE", "percent": "81.5"},
					{"name": "WIN_TEN", "percent": 42.25},
					{"name": "WIN_HUNDRED", "percent": 3.1},
				},
			}},
			EndpointPlayerAchievements: map[string]any{"playerstats": map[string]any{
				"success": true,
				"achievements": []map[string]any{
					{"apiname": "WIN_ONE", "achieved": 1, "unlocktime": 1},
					{"apiname": "WIN_TEN", "achieved": 0},
					{"apiname": "WIN_HUNDRED", "achieved": 0},
				},
			}},
			EndpointSchemaForGame: map[string]any{"game": map[string]any{
				"gameName": "Dota 2",
				"availableGameStats": map[string]any{"achievements": []map[string]any{
					{"name": "WIN_ONE", "displayName": "First Blood"},
					{"name": "WIN_TEN", "displayName": "Ten Wins", "description": "Win ten matches"},
				}},
			}},
		},
		status:  map[string]int{},
		queries: map[string][]map[string]string{},
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		q := map[string]string{}
		for k, v := range r.URL.Query() {
			q[k] = v[0]
		}
		f.queries[r.URL.Path] = append(f.queries[r.URL.Path], q)
		status, body := f.status[r.URL.Path], f.responses[r.URL.Path]
		f.mu.Unlock()

		if status != 0 {
			w.WriteHeader(status)
			return
		}
		if body == nil {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeSteam) calls(path string) []map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queries[path]
}

func (f *fakeSteam) fail(path string, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status[path] = status
}

func newTestClient(t *testing.T, baseURL string, cfg Config) *Client {
	t.Helper()
	hc, err := httpclient.New(httpclient.Config{BaseURL: baseURL, Timeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("httpclient.New: %v", err)
	}
	rc := caller.New(hc, caller.Config{
		Bucket: resilience.TokenBucketConfig{Rate: 100, Capacity: 50},
		Retry:  resilience.RetryConfig{MaxRetries: 1, BaseDelay: time.Millisecond},
	})
	return New(rc, cfg, nil)
}

func withCredentials() Config { return Config{APIKey: "k", SteamID: "7656"} }

func TestOwnedGames(t *testing.T) {
	f, srv := newFakeSteam(t)
	c := newTestClient(t, srv.URL, withCredentials())

	games, err := c.OwnedGames(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(games) != 2 || games[0].Name != "Dota 2" || games[1].Playtime2Weeks != 30 {
		t.Errorf("unexpected games %+v", games)
	}
	q := f.calls(EndpointOwnedGames)[0]
	if q["key"] != "k" || q["steamid"] != "7656" || q["include_appinfo"] != "1" {
		t.Errorf("unexpected query %v", q)
	}
}

func TestCredentialsRequired(t *testing.T) {
	f, srv := newFakeSteam(t)
	c := newTestClient(t, srv.URL, Config{})

	if _, err := c.OwnedGames(context.Background()); !errors.HasCode(err, errors.ErrCodeInvalidInput) {
		t.Errorf("expected INVALID_INPUT, got %v", err)
	}
	if _, err := c.PlayerAchievements(context.Background(), testAppID); !errors.HasCode(err, errors.ErrCodeInvalidInput) {
		t.Errorf("expected INVALID_INPUT, got %v", err)
	}
	if len(f.calls(EndpointOwnedGames)) != 0 {
		t.Error("no request should be sent without credentials")
	}
}

func TestRecentlyPlayedEmpty(t *testing.T) {
	_, srv := newFakeSteam(t)
	c := newTestClient(t, srv.URL, withCredentials())

	games, err := c.RecentlyPlayed(context.Background())
	if err != nil || games == nil || len(games) != 0 {
		t.Errorf("expected an empty list, got %v / %v", games, err)
	}
}

func TestPlayerSummaries(t *testing.T) {
	f, srv := newFakeSteam(t)
	c := newTestClient(t, srv.URL, withCredentials())

	players, err := c.PlayerSummaries(context.Background(), "1", "2")
	if err != nil || len(players) != 1 || players[0].PersonaName != "gaben" {
		t.Fatalf("unexpected result %+v / %v", players, err)
	}
	if got := f.calls(EndpointPlayerSummaries)[0]["steamids"]; got != "1,2" {
		t.Errorf("expected joined steam IDs, got %q", got)
	}
}

func TestCurrentPlayersAndNews(t *testing.T) {
	f, srv := newFakeSteam(t)
	c := newTestClient(t, srv.URL, Config{})

	n, err := c.CurrentPlayers(context.Background(), testAppID)
	if err != nil || n != 812345 {
		t.Errorf("unexpected player count %d / %v", n, err)
	}

	news, err := c.News(context.Background(), testAppID, 0)
	if err != nil || len(news) != 2 || news[0].Title != "Patch 7.36" {
		t.Errorf("unexpected news %+v / %v", news, err)
	}
	q := f.calls(EndpointNews)[0]
	if q["count"] != "3" || q["maxlength"] != "500" || q["appid"] != "570" {
		t.Errorf("unexpected news query %v", q)
	}
}

func TestInvalidAppID(t *testing.T) {
	f, srv := newFakeSteam(t)
	c := newTestClient(t, srv.URL, withCredentials())

	for _, appID := range []int{0, -1} {
		if _, err := c.CurrentPlayers(context.Background(), appID); !errors.HasCode(err, errors.ErrCodeInvalidInput) {
			t.Errorf("appid %d: expected INVALID_INPUT, got %v", appID, err)
		}
		if _, err := c.SessionContext(context.Background(), appID); !errors.HasCode(err, errors.ErrCodeInvalidInput) {
			t.Errorf("appid %d: expected INVALID_INPUT from session, got %v", appID, err)
		}
	}
	if len(f.calls(EndpointCurrentPlayers)) != 0 {
		t.Error("invalid app IDs must not reach the upstream")
	}
}

func TestMissingDataIsNotFound(t *testing.T) {
	f, srv := newFakeSteam(t)
	f.fail(EndpointCurrentPlayers, http.StatusForbidden)
	c := newTestClient(t, srv.URL, Config{})

	if _, err := c.CurrentPlayers(context.Background(), testAppID); !errors.HasCode(err, errors.ErrCodeNotFound) {
		t.Errorf("expected NOT_FOUND for an empty upstream answer, got %v", err)
	}
}

func TestSchemaUsesGuideCache(t *testing.T) {
	_, srv := newFakeSteam(t)
	c := newTestClient(t, srv.URL, withCredentials())

	s, err := c.Schema(context.Background(), testAppID)
	if err != nil || s.GameName != "Dota 2" || len(s.Achievements) != 2 {
		t.Fatalf("unexpected schema %+v / %v", s, err)
	}
	if c.caller.GuideCache().Len() != 1 {
		t.Error("expected the schema in the guide cache")
	}
	again, _ := c.Schema(context.Background(), testAppID)
	if again != s {
		t.Error("expected the cached schema to be returned")
	}
}

func TestPercent(t *testing.T) {
	var list []AchievementPercent
	if err := json.Unmarshal([]byte(`[{"name":"a","percent":"12.5"},{"name":"b","percent":3}]`), &list); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if list[0].Percent != 12.5 || list[1].Percent != 3 {
		t.Errorf("unexpected percents %+v", list)
	}
	var bad AchievementPercent
	if err := json.Unmarshal([]byte(`{"percent":"n/a"}`), &bad); err == nil {
		t.Error("expected an error for a non-numeric percent")
	}
}

func TestRarity(t *testing.T) {
	tests := []struct {
		percent Percent
		want    string
	}{
		{1, "Very Rare"},
		{5, "Rare"},
		{19.9, "Rare"},
		{20, "Uncommon"},
		{50, "Common"},
	}
	for _, tt := range tests {
		if got := (AchievementPercent{Percent: tt.percent}).Rarity(); got != tt.want {
			t.Errorf("Rarity(%v) = %s, want %s", tt.percent, got, tt.want)
		}
	}
}

func TestSessionContext(t *testing.T) {
	f, srv := newFakeSteam(t)
	c := newTestClient(t, srv.URL, withCredentials())

	s, err := c.SessionContext(context.Background(), testAppID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(s.Errors) != 0 {
		t.Fatalf("unexpected task errors %v", s.Errors)
	}
	if s.Game != "Dota 2" || s.RequestID == "" {
		t.Errorf("unexpected session header %+v", s)
	}
	if s.Achievements == nil || s.Achievements.Total != 3 || s.Achievements.Unlocked != 1 || s.Achievements.CompletionPercentage != 33.3 {
		t.Errorf("unexpected progress %+v", s.Achievements)
	}
	if s.SuggestedNext == nil || s.SuggestedNext.Name != "WIN_TEN" || s.SuggestedNext.DisplayName != "Ten Wins" || s.SuggestedNext.Rarity != "Uncommon" {
		t.Errorf("unexpected suggestion %+v", s.SuggestedNext)
	}
	if s.RecentNews == nil || s.RecentNews.Count != 2 || s.RecentNews.LatestTitle != "Patch 7.36" {
		t.Errorf("unexpected news %+v", s.RecentNews)
	}
	if s.Community == nil || s.Community.CurrentPlayers != 812345 {
		t.Errorf("unexpected community %+v", s.Community)
	}
	if len(s.Tasks) != 5 {
		t.Errorf("expected 5 timed tasks, got %v", s.Tasks)
	}
	if got := c.caller.Dispatcher().Stats(); got.Batches != 1 || got.Tasks != 5 {
		t.Errorf("expected one dispatcher batch of 5 tasks, got %+v", got)
	}

	// The assembled session is served from the tool cache.
	again, err := c.SessionContext(context.Background(), testAppID)
	if err != nil || again != s {
		t.Errorf("expected the cached session, got %v", err)
	}
	if len(f.calls(EndpointNews)) != 1 {
		t.Errorf("expected a single news request, got %d", len(f.calls(EndpointNews)))
	}
}

func TestSessionContextPartialFailure(t *testing.T) {
	f, srv := newFakeSteam(t)
	f.fail(EndpointNews, http.StatusServiceUnavailable)
	c := newTestClient(t, srv.URL, Config{})

	s, err := c.SessionContext(context.Background(), testAppID)
	if err != nil {
		t.Fatalf("partial failures must not fail the session: %v", err)
	}
	if _, ok := s.Errors[TaskNews]; !ok {
		t.Errorf("expected a news error, got %v", s.Errors)
	}
	if s.RecentNews != nil {
		t.Errorf("expected no news section, got %+v", s.RecentNews)
	}
	if s.Community == nil {
		t.Error("other sections must still be filled")
	}
	if s.Achievements != nil {
		t.Error("player achievements need credentials")
	}
	if c.caller.ToolCache().Len() != 0 {
		t.Error("partial sessions must not be cached")
	}
}
