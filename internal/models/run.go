package models

import "time"

// RunSettings are the competition parameters a Run was simulated with.
type RunSettings struct {
	DrawSize     int          `json:"drawSize" firestore:"drawSize"`
	SeedRate     float64      `json:"seedRate" firestore:"seedRate"`
	Surface      Surface      `json:"surface" firestore:"surface"`
	Level        Level        `json:"level" firestore:"level"`
	Date         time.Time    `json:"date" firestore:"date"`
	BestOf       BestOf       `json:"bestOf" firestore:"bestOf"`
	FinalBestOf  BestOf       `json:"finalBestOf" firestore:"finalBestOf"`
	FifthSetRule FifthSetRule `json:"fifthSetRule" firestore:"fifthSetRule"`
	Mode         string       `json:"mode" firestore:"mode"`
	AllowByes    bool         `json:"allowByes" firestore:"allowByes"`
}

// RunMatch is one played (or bye) match of a Run. PlayerTwoID is nil for a bye.
type RunMatch struct {
	PlayerOneID   int    `json:"playerOneId" firestore:"playerOneId"`
	PlayerOneName string `json:"playerOneName" firestore:"playerOneName"`
	PlayerTwoID   *int   `json:"playerTwoId,omitempty" firestore:"playerTwoId,omitempty"`
	PlayerTwoName string `json:"playerTwoName,omitempty" firestore:"playerTwoName,omitempty"`
	WinnerID      int    `json:"winnerId" firestore:"winnerId"`
	Score         string `json:"score" firestore:"score"`
}

type RunRound struct {
	Round   Round      `json:"round" firestore:"round"`
	Matches []RunMatch `json:"matches" firestore:"matches"`
}

// Run is the stored result of one simulated competition.
type Run struct {
	ID         string      `json:"id" firestore:"id"`
	Name       string      `json:"name" firestore:"name"`
	Settings   RunSettings `json:"settings" firestore:"settings"`
	Seed       int64       `json:"seed" firestore:"seed"`
	Rounds     []RunRound  `json:"rounds" firestore:"rounds"`
	ChampionID int         `json:"championId" firestore:"championId"`
	CreatedAt  time.Time   `json:"createdAt" firestore:"createdAt"`
	UpdatedAt  time.Time   `json:"updatedAt" firestore:"updatedAt"`
}

// Champion returns the winner of the final, if the run got that far.
func (r *Run) Champion() (RunMatch, bool) {
	if len(r.Rounds) == 0 {
		return RunMatch{}, false
	}
	last := r.Rounds[len(r.Rounds)-1]
	if last.Round != RoundFinal || len(last.Matches) != 1 {
		return RunMatch{}, false
	}
	return last.Matches[0], true
}
