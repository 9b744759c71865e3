package steam

import (
	"context"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/steamlens/dispatch"
	"github.com/kbukum/steamlens/logger"
	"github.com/kbukum/steamlens/observability"
)

// Session task names, also the keys of Session.Errors.
const (
	TaskSchema       = "schema"
	TaskAchievements = "achievements"
	TaskGlobal       = "global_achievements"
	TaskNews         = "news"
	TaskPlayers      = "players"
)

// Session is the context assembled for one game.
type Session struct {
	AppID       int    `json:"appid"`
	Game        string `json:"game,omitempty"`
	RequestID   string `json:"request_id"`
	GeneratedAt string `json:"generated_at"`

	Achievements  *AchievementProgress  `json:"achievement_progress,omitempty"`
	SuggestedNext *SuggestedAchievement `json:"suggested_next_achievement,omitempty"`
	RecentNews    *NewsSummary          `json:"recent_news,omitempty"`
	Community     *Community            `json:"community_activity,omitempty"`

	// Errors holds one message per task that produced no data.
	Errors map[string]string `json:"errors,omitempty"`
	// Tasks times every fan-out call in milliseconds.
	Tasks map[string]int64 `json:"task_duration_ms"`
}

// AchievementProgress is the owner's completion of a game.
type AchievementProgress struct {
	Total                int     `json:"total"`
	Unlocked             int     `json:"unlocked"`
	CompletionPercentage float64 `json:"completion_percentage"`
}

// SuggestedAchievement is the locked achievement most players have earned.
type SuggestedAchievement struct {
	Name        string  `json:"name"`
	DisplayName string  `json:"display_name,omitempty"`
	Description string  `json:"description,omitempty"`
	Percent     float64 `json:"global_percent"`
	Rarity      string  `json:"rarity"`
}

// NewsSummary summarises the latest news.
type NewsSummary struct {
	Count       int    `json:"count"`
	LatestTitle string `json:"latest_title,omitempty"`
	LatestURL   string `json:"latest_url,omitempty"`
}

// Community is the live player activity of a game.
type Community struct {
	CurrentPlayers int `json:"current_players"`
}

// SessionContext fetches everything known about appID concurrently through
// the caller's dispatcher and assembles it into a Session. Individual task
// failures are reported in Session.Errors; only an invalid appID fails the
// whole call. Assembled sessions are kept in the tool cache.
func (c *Client) SessionContext(ctx context.Context, appID int) (*Session, error) {
	if err := validAppID(appID); err != nil {
		return nil, err
	}
	key := sessionKey(appID)
	if v, ok := c.caller.ToolCache().Get(key); ok {
		if s, ok := v.(*Session); ok {
			return s, nil
		}
	}

	oc := observability.NewOperationContext("steamlens", "session", uuid.New().String(), c.log)
	ctx, span := oc.StartSpanForOperation(ctx, observability.SpanSession)
	observability.SetSpanAttribute(ctx, observability.AttrAppID, appID)

	results := c.caller.Dispatcher().ExecuteParallel(ctx, c.sessionTasks(appID))
	s := c.assemble(appID, results)
	s.RequestID = oc.RequestID

	status := "ok"
	if len(s.Errors) > 0 {
		status = "partial"
	}
	oc.EndOperation(span, status, nil)
	c.log.Info("session context assembled", logger.Fields(
		"appid", appID,
		logger.FieldRequestID, oc.RequestID,
		logger.FieldStatus, status,
		"failed_tasks", len(s.Errors),
	))

	if len(s.Errors) == 0 {
		c.caller.ToolCache().Set(key, s)
	}
	return s, nil
}

// sessionTasks builds one task per section. The player achievements task is
// only added when credentials are configured.
func (c *Client) sessionTasks(appID int) []dispatch.Task {
	tasks := []dispatch.Task{
		{Name: TaskSchema, Run: func(ctx context.Context) (any, error) {
			if c.cfg.APIKey == "" {
				return nil, nil
			}
			return c.Schema(ctx, appID)
		}},
		{Name: TaskGlobal, Run: func(ctx context.Context) (any, error) {
			return c.GlobalAchievementPercentages(ctx, appID)
		}},
		{Name: TaskNews, Run: func(ctx context.Context) (any, error) {
			return c.News(ctx, appID, 0)
		}},
		{Name: TaskPlayers, Run: func(ctx context.Context) (any, error) {
			return c.CurrentPlayers(ctx, appID)
		}},
	}
	if c.cfg.hasCredentials() {
		tasks = append(tasks, dispatch.Task{Name: TaskAchievements, Run: func(ctx context.Context) (any, error) {
			return c.PlayerAchievements(ctx, appID)
		}})
	}
	return tasks
}

func (c *Client) assemble(appID int, results map[string]dispatch.Outcome) *Session {
	s := &Session{
		AppID:       appID,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Errors:      map[string]string{},
		Tasks:       make(map[string]int64, len(results)),
	}
	for name, out := range results {
		s.Tasks[name] = out.Duration.Milliseconds()
		if out.Err != nil {
			s.Errors[name] = out.Err.Error()
		}
	}

	schema, _ := results[TaskSchema].Value.(*Schema)
	if schema != nil {
		s.Game = schema.GameName
	}
	global, _ := results[TaskGlobal].Value.([]AchievementPercent)
	mine, hasMine := results[TaskAchievements].Value.([]PlayerAchievement)

	if hasMine && results[TaskAchievements].Err == nil {
		s.Achievements = progress(mine)
		s.SuggestedNext = suggest(mine, global, schema)
	}
	if news, ok := results[TaskNews].Value.([]NewsItem); ok && results[TaskNews].Err == nil {
		s.RecentNews = &NewsSummary{Count: len(news)}
		if len(news) > 0 {
			s.RecentNews.LatestTitle = news[0].Title
			s.RecentNews.LatestURL = news[0].URL
		}
	}
	if players, ok := results[TaskPlayers].Value.(int); ok && results[TaskPlayers].Err == nil {
		s.Community = &Community{CurrentPlayers: players}
	}

	if len(s.Errors) == 0 {
		s.Errors = nil
	}
	return s
}

func progress(mine []PlayerAchievement) *AchievementProgress {
	p := &AchievementProgress{Total: len(mine)}
	for _, a := range mine {
		if a.Unlocked() {
			p.Unlocked++
		}
	}
	if p.Total > 0 {
		p.CompletionPercentage = math.Round(float64(p.Unlocked)/float64(p.Total)*1000) / 10
	}
	return p
}

// suggest picks the locked achievement with the highest global unlock rate.
func suggest(mine []PlayerAchievement, global []AchievementPercent, schema *Schema) *SuggestedAchievement {
	locked := make(map[string]bool, len(mine))
	for _, a := range mine {
		if !a.Unlocked() {
			locked[a.APIName] = true
		}
	}
	candidates := make([]AchievementPercent, 0, len(locked))
	for _, g := range global {
		if locked[g.Name] {
			candidates = append(candidates, g)
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].Percent > candidates[j].Percent })

	best := candidates[0]
	out := &SuggestedAchievement{
		Name:    best.Name,
		Percent: math.Round(float64(best.Percent)*10) / 10,
		Rarity:  best.Rarity(),
	}
	if schema != nil {
		for _, a := range schema.Achievements {
			if a.Name == best.Name {
				out.DisplayName = a.DisplayName
				out.Description = a.Description
				break
			}
		}
	}
	return out
}

func sessionKey(appID int) string { return "session:" + strconv.Itoa(appID) }
