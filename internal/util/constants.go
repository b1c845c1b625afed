package util

const (
	DateFormat = "2006-01-02"
	TimeFormat = "2006-01-02 15:04:05"
)

const (
	DefaultLeaderboardLimit = 10
	MaxLeaderboardLimit     = 100
	MaxRecentTransactions   = 100
)
