package model

import "time"

type Page[T any] struct {
	Data        []T `json:"data"`
	TotalItems  int `json:"totalItems"`
	TotalPages  int `json:"totalPages"`
	CurrentPage int `json:"currentPage"`
	PageSize    int `json:"pageSize"`
}

type Tenant struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug,omitempty"`
}

type League struct {
	ID         string `json:"id"`
	TenantID   string `json:"tenantId"`
	Name       string `json:"name"`
	LeagueCode string `json:"leagueCode,omitempty"`
	SportType  string `json:"sportType,omitempty"`
}

type Team struct {
	ID       string `json:"id"`
	TenantID string `json:"tenantId"`
	LeagueID string `json:"leagueId"`
	Name     string `json:"name"`
}

type Player struct {
	ID           string `json:"id"`
	TeamID       string `json:"teamId"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	JerseyNumber int    `json:"jerseyNumber,omitempty"`
}

type Season struct {
	ID        string    `json:"id"`
	LeagueID  string    `json:"leagueId"`
	Name      string    `json:"name"`
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
}

type Game struct {
	ID          string    `json:"id"`
	LeagueID    string    `json:"leagueId"`
	SeasonID    string    `json:"seasonId,omitempty"`
	HomeTeamID  string    `json:"homeTeamId"`
	AwayTeamID  string    `json:"awayTeamId"`
	ScheduledAt time.Time `json:"scheduledAt"`
	Status      string    `json:"status"`
	HomeScore   *int      `json:"homeScore,omitempty"`
	AwayScore   *int      `json:"awayScore,omitempty"`
}

type Post struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenantId,omitempty"`
	LeagueID  string    `json:"leagueId,omitempty"`
	TeamID    string    `json:"teamId,omitempty"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	AuthorID  string    `json:"authorId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type Standing struct {
	TeamID   string `json:"teamId"`
	TeamName string `json:"teamName"`
	Played   int    `json:"played"`
	Wins     int    `json:"wins"`
	Losses   int    `json:"losses"`
	Draws    int    `json:"draws"`
	Points   int    `json:"points"`
}
