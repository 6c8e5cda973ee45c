/*
params.go - Economic parameter resolver

Answers "what interest rate / penalty rule was in effect at time T" by
finding the latest adjustment transaction at or before T. Pure point-in-time
lookups: transactions strictly after the bound never affect the answer.
*/
package ledger

import "context"

const (
	// DefaultInterestPercent applies before any ADJUST_INTEREST exists.
	// 100 means no markup.
	DefaultInterestPercent int64 = 100

	// DefaultPenaltyThreshold / DefaultPenaltyMultiplierPercent apply
	// before any ADJUST_PENALTY exists. A multiplier of 100 means no
	// penalty.
	DefaultPenaltyThreshold         int64 = 0
	DefaultPenaltyMultiplierPercent int64 = 100
)

// ParamResolver resolves time-varying economic parameters from the log.
type ParamResolver struct {
	store Store
}

func NewParamResolver(store Store) *ParamResolver {
	return &ParamResolver{store: store}
}

// InterestAt returns the interest rate percent in effect at the bound.
func (r *ParamResolver) InterestAt(ctx context.Context, until *Position) (int64, error) {
	tx, err := r.store.LatestOfType(ctx, TxAdjustInterest, until)
	if err != nil {
		return 0, err
	}
	if tx == nil {
		return DefaultInterestPercent, nil
	}
	return tx.InterestRatePercent, nil
}

// PenaltyAt returns the penalty rule in effect at the bound.
func (r *ParamResolver) PenaltyAt(ctx context.Context, until *Position) (PenaltyRule, error) {
	tx, err := r.store.LatestOfType(ctx, TxAdjustPenalty, until)
	if err != nil {
		return PenaltyRule{}, err
	}
	if tx == nil {
		return PenaltyRule{
			Threshold:         DefaultPenaltyThreshold,
			MultiplierPercent: DefaultPenaltyMultiplierPercent,
		}, nil
	}
	return PenaltyRule{
		Threshold:         tx.PenaltyThreshold,
		MultiplierPercent: tx.PenaltyMultiplierPercent,
	}, nil
}
