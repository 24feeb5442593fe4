package game

import "errors"

// ErrEmptyPot is returned when a draw is requested below quorum or with
// nothing at stake.
var ErrEmptyPot = errors.New("empty_pot")

// Entry is one wheel slice: a participant and their stake, in position order.
type Entry struct {
	ID         string
	StakeMilli int64
}

// Result is the outcome of one draw. Chance is the winner's a-priori
// selection probability, reported for display.
type Result struct {
	WinnerID   string
	Index      int
	Chance     float64
	TotalMilli int64
}

// Select picks a winner with probability proportional to stake: an
// inverse-CDF sample over the cumulative stake sums. Entries must be in
// stable position order so the same input and same random value always yield
// the same winner. randUnit must return a value in [0, 1).
func Select(entries []Entry, randUnit func() float64) (Result, error) {
	if len(entries) < 2 {
		return Result{}, ErrEmptyPot
	}
	var total int64
	for _, e := range entries {
		total += e.StakeMilli
	}
	if total <= 0 {
		return Result{}, ErrEmptyPot
	}

	r := randUnit() * float64(total)
	var sum int64
	last := -1
	for i, e := range entries {
		// Zero-stake entries add nothing to the sums and can never win,
		// even at r == 0.
		if e.StakeMilli <= 0 {
			continue
		}
		sum += e.StakeMilli
		last = i
		if float64(sum) >= r {
			return Result{
				WinnerID:   e.ID,
				Index:      i,
				Chance:     float64(e.StakeMilli) / float64(total),
				TotalMilli: total,
			}, nil
		}
	}
	// r can only exceed every cumulative sum through float rounding at the
	// far edge; the last staked entry is then the winner.
	return Result{
		WinnerID:   entries[last].ID,
		Index:      last,
		Chance:     float64(entries[last].StakeMilli) / float64(total),
		TotalMilli: total,
	}, nil
}
