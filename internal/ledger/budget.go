package ledger

// SetBudget overrides the lending capital
type SetBudget struct {
	Amount int64
}

func (a SetBudget) apply(s *State, _ Env) (Changes, error) {
	if a.Amount < 0 {
		return Changes{}, ErrInvalidBudget
	}
	if s.Budget == a.Amount {
		return Changes{}, nil
	}
	s.Budget = a.Amount
	return Changes{Budget: true, Immediate: true}, nil
}

// ResetRankProfit zeroes the accumulated upgrade fees, e.g. after they were paid out
type ResetRankProfit struct{}

func (ResetRankProfit) apply(s *State, _ Env) (Changes, error) {
	if s.RankProfit == 0 {
		return Changes{}, nil
	}
	s.RankProfit = 0
	return Changes{RankProfit: true, Immediate: true}, nil
}
