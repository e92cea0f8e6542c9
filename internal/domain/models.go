package domain

import (
	"time"
)

type MatchStatus string

const (
	MatchScheduled MatchStatus = "scheduled"
	MatchCompleted MatchStatus = "completed"
)

type Player struct {
	ID        string
	Name      string
	Rating    int
	Rank      int
	Wins      int
	Losses    int
	Streak    int
	JoinedAt  time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Match is a single row in the ledger. A scheduled match only carries the
// player1/player2 pairing; registering a result converts it in place into a
// completed match with the winner/loser fields filled in. Names are
// snapshotted at write time so history stays readable after a player is
// removed.
type Match struct {
	ID     string
	Status MatchStatus

	Player1ID   string
	Player1Name string
	Player2ID   string
	Player2Name string

	WinnerID    string
	WinnerName  string
	LoserID     string
	LoserName   string
	WinnerScore int
	LoserScore  int

	Date         time.Time
	RatingChange int
	RankSwap     bool
	Commentary   string

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (m Match) Involves(playerID string) bool {
	return m.WinnerID == playerID || m.LoserID == playerID
}

func (m Match) WonBy(playerID string) bool {
	return m.WinnerID == playerID
}
