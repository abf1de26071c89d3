package targets

import (
	"equity-trader/internal/errors"
	"equity-trader/internal/models"
)

// EvaluateRiskReward returns per-share risk and reward at price. A
// non-positive value is an invalid-risk error and the caller abstains.
func EvaluateRiskReward(symbol string, price float64, t models.PriceTarget) (models.RiskReward, error) {
	rr := models.RiskReward{
		Risk:   price - t.StopLoss,
		Reward: t.TakeProfit - price,
	}
	if rr.Risk <= 0 {
		return rr, errors.NewRiskError("risk_per_share:"+symbol, rr.Risk, 0, "stop-loss at or above price", errors.ErrInvalidRisk)
	}
	if rr.Reward <= 0 {
		return rr, errors.NewRiskError("reward_per_share:"+symbol, rr.Reward, 0, "take-profit at or below price", errors.ErrInvalidRisk)
	}
	return rr, nil
}
