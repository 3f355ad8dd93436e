package devbackend

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"league-console/internal/model"
)

type fixtures struct {
	mu      sync.RWMutex
	tenants []model.Tenant
	leagues []model.League
	teams   []model.Team
	players []model.Player
	seasons []model.Season
	games   []model.Game
	posts   []model.Post
}

func intPtr(v int) *int {
	return &v
}

func seedFixtures() *fixtures {
	spring := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	return &fixtures{
		tenants: []model.Tenant{
			{ID: "T1", Name: "Northside Sports", Slug: "northside"},
			{ID: "T2", Name: "Harbor Athletics", Slug: "harbor"},
		},
		leagues: []model.League{
			{ID: "L1", TenantID: "T1", Name: "Northside Premier", LeagueCode: "NSP", SportType: "soccer"},
			{ID: "L2", TenantID: "T1", Name: "Northside Youth", LeagueCode: "NSY", SportType: "soccer"},
			{ID: "L3", TenantID: "T2", Name: "Harbor Hoops", LeagueCode: "HBH", SportType: "basketball"},
		},
		teams: []model.Team{
			{ID: "TM1", TenantID: "T1", LeagueID: "L1", Name: "Rovers"},
			{ID: "TM2", TenantID: "T1", LeagueID: "L1", Name: "United"},
			{ID: "TM3", TenantID: "T1", LeagueID: "L2", Name: "Juniors"},
			{ID: "TM4", TenantID: "T2", LeagueID: "L3", Name: "Dockers"},
		},
		players: []model.Player{
			{ID: "P1", TeamID: "TM1", FirstName: "Ana", LastName: "Reyes", JerseyNumber: 9},
			{ID: "P2", TeamID: "TM1", FirstName: "Ben", LastName: "Okafor", JerseyNumber: 4},
			{ID: "P3", TeamID: "TM2", FirstName: "Chen", LastName: "Wu", JerseyNumber: 1},
		},
		seasons: []model.Season{
			{ID: "S1", LeagueID: "L1", Name: "Spring 2026", StartDate: spring, EndDate: spring.AddDate(0, 3, 0)},
		},
		games: []model.Game{
			{ID: "G1", LeagueID: "L1", SeasonID: "S1", HomeTeamID: "TM1", AwayTeamID: "TM2", ScheduledAt: spring.AddDate(0, 0, 7), Status: "completed", HomeScore: intPtr(2), AwayScore: intPtr(1)},
			{ID: "G2", LeagueID: "L1", SeasonID: "S1", HomeTeamID: "TM2", AwayTeamID: "TM1", ScheduledAt: spring.AddDate(0, 0, 14), Status: "scheduled"},
		},
		posts: []model.Post{
			{ID: "PO1", TenantID: "T1", LeagueID: "L1", Title: "Season kickoff", Content: "Spring season starts March 8.", CreatedAt: spring},
		},
	}
}

func (f *fixtures) hasLeagueCode(code string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()

	for _, league := range f.leagues {
		if strings.EqualFold(league.LeagueCode, code) {
			return true
		}
	}
	return false
}

func (f *fixtures) league(id string) (model.League, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	for _, league := range f.leagues {
		if league.ID == id {
			return league, true
		}
	}
	return model.League{}, false
}

func (f *fixtures) addPost(post model.Post) model.Post {
	f.mu.Lock()
	defer f.mu.Unlock()

	post.ID = uuid.NewString()
	post.CreatedAt = time.Now().UTC()
	f.posts = append(f.posts, post)
	return post
}

// standings counts completed games only: three points a win, one a draw.
func (f *fixtures) standings(leagueID string) []model.Standing {
	f.mu.RLock()
	defer f.mu.RUnlock()

	rows := map[string]*model.Standing{}
	for _, team := range f.teams {
		if team.LeagueID == leagueID {
			rows[team.ID] = &model.Standing{TeamID: team.ID, TeamName: team.Name}
		}
	}

	for _, game := range f.games {
		if game.LeagueID != leagueID || game.Status != "completed" || game.HomeScore == nil || game.AwayScore == nil {
			continue
		}
		home, away := rows[game.HomeTeamID], rows[game.AwayTeamID]
		if home == nil || away == nil {
			continue
		}
		home.Played++
		away.Played++
		switch {
		case *game.HomeScore > *game.AwayScore:
			home.Wins++
			away.Losses++
			home.Points += 3
		case *game.HomeScore < *game.AwayScore:
			away.Wins++
			home.Losses++
			away.Points += 3
		default:
			home.Draws++
			away.Draws++
			home.Points++
			away.Points++
		}
	}

	out := make([]model.Standing, 0, len(rows))
	for _, row := range rows {
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Points != out[j].Points {
			return out[i].Points > out[j].Points
		}
		return out[i].TeamName < out[j].TeamName
	})

	return out
}

func filter[T any](items []T, keep func(T) bool) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if keep(item) {
			out = append(out, item)
		}
	}
	return out
}

func paginate[T any](items []T, page int, limit int) model.Page[T] {
	if limit <= 0 {
		limit = 20
	}
	if page <= 0 {
		page = 1
	}

	total := len(items)
	totalPages := (total + limit - 1) / limit
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}

	return model.Page[T]{
		Data:        append([]T{}, items[start:end]...),
		TotalItems:  total,
		TotalPages:  totalPages,
		CurrentPage: page,
		PageSize:    limit,
	}
}
