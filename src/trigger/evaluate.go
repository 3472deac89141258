package trigger

import (
	"github.com/shopspring/decimal"

	"panicpod/src/model"
)

// Evaluate reports whether the configured conditions fire against the given
// prices. Empty condition sets never fire; unknown assets fail their
// condition rather than the evaluation.
func Evaluate(conditions []model.TriggerCondition, logic model.TriggerLogic, prices model.PriceSnapshot) bool {
	if len(conditions) == 0 {
		return false
	}
	if logic == "" {
		logic = model.TriggerLogicOr
	}

	for _, condition := range conditions {
		fired := evaluateOne(condition, prices)
		if fired && logic == model.TriggerLogicOr {
			return true
		}
		if !fired && logic == model.TriggerLogicAnd {
			return false
		}
	}
	return logic == model.TriggerLogicAnd
}

func evaluateOne(condition model.TriggerCondition, prices model.PriceSnapshot) bool {
	var price decimal.Decimal
	switch condition.Asset {
	case "BTC":
		price = prices.Bitcoin
	case "ETH":
		price = prices.Ethereum
	case "ZETA":
		price = prices.Zeta
	default:
		return false
	}

	switch condition.Operator {
	case model.OperatorLessThan:
		return price.LessThan(condition.Value)
	case model.OperatorGreaterThan:
		return price.GreaterThan(condition.Value)
	case model.OperatorEquals:
		return price.Equal(condition.Value)
	default:
		return false
	}
}
