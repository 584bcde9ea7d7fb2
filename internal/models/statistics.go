package models

// Ratio counts successes out of attempts. A zero Played means "no data".
type Ratio struct {
	Won    int `json:"won"`
	Played int `json:"played"`
}

// Rate returns Won/Played, and false when there is nothing to divide.
func (r Ratio) Rate() (float64, bool) {
	if r.Played == 0 {
		return 0, false
	}
	return float64(r.Won) / float64(r.Played), true
}

func (r Ratio) add(won, played int) Ratio {
	return Ratio{Won: r.Won + won, Played: r.Played + played}
}

// RateTable slices one ratio by every match context the odds model looks at.
// A missing key means the player has no data for that category.
type RateTable struct {
	Overall    Ratio             `json:"overall"`
	BySurface  map[Surface]Ratio `json:"bySurface"`
	ByLevel    map[Level]Ratio   `json:"byLevel"`
	ByRound    map[Round]Ratio   `json:"byRound"`
	ByBestOf   map[BestOf]Ratio  `json:"byBestOf"`
	ByYear     map[int]Ratio     `json:"byYear"`
	ByOpponent map[int]Ratio     `json:"byOpponent"`
}

func newRateTable() RateTable {
	return RateTable{
		BySurface:  make(map[Surface]Ratio),
		ByLevel:    make(map[Level]Ratio),
		ByRound:    make(map[Round]Ratio),
		ByBestOf:   make(map[BestOf]Ratio),
		ByYear:     make(map[int]Ratio),
		ByOpponent: make(map[int]Ratio),
	}
}

func (t *RateTable) record(m MatchArchive, opponent, won, played int) {
	if played == 0 {
		return
	}
	t.Overall = t.Overall.add(won, played)
	t.BySurface[m.Surface] = t.BySurface[m.Surface].add(won, played)
	t.ByLevel[m.Level] = t.ByLevel[m.Level].add(won, played)
	t.ByRound[m.Round] = t.ByRound[m.Round].add(won, played)
	t.ByBestOf[m.BestOf] = t.ByBestOf[m.BestOf].add(won, played)
	t.ByYear[m.Date.Year()] = t.ByYear[m.Date.Year()].add(won, played)
	t.ByOpponent[opponent] = t.ByOpponent[opponent].add(won, played)
}

// Statistics holds a player's precomputed match, serve and tie-break ratios.
type Statistics struct {
	Matches    int       `json:"matches"`
	Wins       RateTable `json:"wins"`
	ServeHolds RateTable `json:"serveHolds"`
	TieBreaks  RateTable `json:"tieBreaks"`
}

// ComputeStatistics aggregates the matches of playerID. Matches the player
// did not take part in are ignored.
func ComputeStatistics(playerID int, matches []MatchArchive) *Statistics {
	st := &Statistics{
		Wins:       newRateTable(),
		ServeHolds: newRateTable(),
		TieBreaks:  newRateTable(),
	}
	for _, m := range matches {
		isWinner := m.WinnerID == playerID
		if !isWinner && m.LoserID != playerID {
			continue
		}
		st.Matches++
		opponent := m.Opponent(playerID)

		won := 0
		if isWinner {
			won = 1
		}
		st.Wins.record(m, opponent, won, 1)

		serve := m.LoserServe
		if isWinner {
			serve = m.WinnerServe
		}
		if serve != nil {
			st.ServeHolds.record(m, opponent, serve.Held, serve.Played)
		}

		tbWon, tbPlayed := 0, 0
		for _, set := range m.Sets {
			if !set.HasTieBreak() {
				continue
			}
			tbPlayed++
			// Set scores are stored from the match winner's side.
			if (set.WinnerGames > set.LoserGames) == isWinner {
				tbWon++
			}
		}
		st.TieBreaks.record(m, opponent, tbWon, tbPlayed)
	}
	return st
}
