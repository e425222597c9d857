// internal/economy/economy.go
package economy

// Settlement rules for the rating/currency ledger. Deltas are always keyed
// by raw correctness; the shield mechanic never reaches this package.
//
// The +15/-10 asymmetry is a deliberate game-balance choice.
const (
	RankedRatingWin  = 15
	RankedRatingLoss = -10
	CasualPointsWin  = 10
	CasualPointsLoss = -5

	WinPayoutBase   = 100
	WinPayoutRanked = 150
	WinPayoutCustom = 100
)

// AnswerDeltas is the ledger entry produced by a single resolved answer.
// Rating and Points are increments; the store floors the resulting totals
// at zero when applying them.
type AnswerDeltas struct {
	Ranked bool

	Rating int
	Points int

	RankedCorrect int
	RankedTotal   int
	CasualCorrect int
	CasualTotal   int
}

// SettleAnswer computes the profile deltas for one answer. rawCorrect is
// correctness before shield interception.
func SettleAnswer(ranked, rawCorrect bool) AnswerDeltas {
	d := AnswerDeltas{Ranked: ranked}
	if ranked {
		d.RankedTotal = 1
		if rawCorrect {
			d.RankedCorrect = 1
			d.Rating = RankedRatingWin
		} else {
			d.Rating = RankedRatingLoss
		}
		return d
	}
	d.CasualTotal = 1
	if rawCorrect {
		d.CasualCorrect = 1
		d.Points = CasualPointsWin
	} else {
		d.Points = CasualPointsLoss
	}
	return d
}

// WinPayout is the token credit for the last surviving human. Ranked and
// custom bonuses are mutually exclusive by lobby construction.
func WinPayout(ranked, custom bool) int {
	payout := WinPayoutBase
	if ranked {
		payout += WinPayoutRanked
	} else if custom {
		payout += WinPayoutCustom
	}
	return payout
}
