package models

type DashboardStats struct {
	UsersTotal          int `json:"users_total"`
	AnonymousUsersTotal int `json:"anonymous_users_total"`
	LeaguesTotal        int `json:"leagues_total"`
	TournamentsTotal    int `json:"tournaments_total"`
	MatchesTotal        int `json:"matches_total"`
	MergesTotal         int `json:"merges_total"`
}
