package planner

import (
	"fmt"

	"github.com/shopspring/decimal"

	"panicpod/src/gas"
	"panicpod/src/model"
)

const (
	// ChainBitcoin and ChainZetaChain are the display names of the fixed
	// ends of every plan; EVM chain names come from the balance snapshot.
	ChainBitcoin   = "Bitcoin"
	ChainZetaChain = "ZetaChain"

	// SwapDestination marks an item routed through the ZetaChain gateway
	// rather than sent to a literal address.
	SwapDestination = "BTC via ZetaChain"

	SkipNoBalance    = "No balance"
	SkipNoEVMAddress = "No EVM address configured"
	SkipHubAssets    = "Native ZETA and ZRC20 tokens remain on ZetaChain"

	WarnInsufficientFees   = "Insufficient balance for fees"
	WarnInsufficientGas    = "Insufficient balance for gas"
	WarnAddFallbackAddress = "Consider adding an EVM fallback address"
)

// Builder derives execution plans from balance and price snapshots. BuildPlan
// has no side effects; two calls with the same inputs produce the same
// ordered items.
type Builder struct {
	policy gas.Policy
}

func NewBuilder(policy gas.Policy) *Builder {
	return &Builder{policy: policy}
}

// BuildPlan produces one PreviewItem per considered (chain, asset) pair, in
// fixed order: Bitcoin, each EVM chain in snapshot order, then ZetaChain.
// A nil input or a missing config variant yields an empty plan; that is the
// precondition-not-met state, not an error.
func (b *Builder) BuildPlan(
	mode model.StrategyMode,
	strategy *model.PanicStrategy,
	balances *model.BalanceSnapshot,
	prices *model.PriceSnapshot,
) []model.PreviewItem {
	if mode == "" || strategy == nil || balances == nil || prices == nil {
		return []model.PreviewItem{}
	}

	btcAddress, evmAddress, ok := strategy.Addresses(mode)
	if !ok {
		return []model.PreviewItem{}
	}

	items := make([]model.PreviewItem, 0, len(balances.EVM)+2)

	// 1. BTC always transfers to the safe address. An unspendable balance
	// still emits the item with a warning so execution fails explicitly
	// instead of silently dropping funds from the plan.
	if balances.BTC.IsPositive() {
		maxSendable := b.policy.MaxSendable(balances.BTC, gas.ChainBTC)

		item := model.PreviewItem{
			Chain:            ChainBitcoin,
			Asset:            "BTC",
			Balance:          balances.BTC,
			USDValue:         balances.BTC.Mul(prices.Bitcoin),
			Action:           model.ActionTransfer,
			Destination:      btcAddress,
			EstimatedReceive: &maxSendable,
		}
		if maxSendable.LessThanOrEqual(decimal.Zero) {
			item.Warning = WarnInsufficientFees
		}
		items = append(items, item)
	}

	// 2. EVM chains, in declared snapshot order.
	for _, chain := range balances.EVM {
		usdValue := chain.Balance.Mul(prices.Ethereum)

		if chain.Balance.IsZero() {
			items = append(items, model.PreviewItem{
				Chain:      chain.Name,
				Asset:      "ETH",
				Balance:    chain.Balance,
				USDValue:   usdValue,
				Action:     model.ActionSkip,
				SkipReason: SkipNoBalance,
			})
			continue
		}

		if mode == model.ModeEscape {
			items = append(items, b.escapeItem(chain, usdValue, evmAddress))
			continue
		}

		items = append(items, b.havenItem(chain, usdValue, evmAddress))
	}

	// 3. Hub-chain assets stay put: ZetaChain is the settlement layer, not
	// an escape target.
	if hubTotal := balances.HubTotal(); hubTotal.IsPositive() {
		items = append(items, model.PreviewItem{
			Chain:      ChainZetaChain,
			Asset:      "ZETA",
			Balance:    hubTotal,
			USDValue:   hubTotal.Mul(prices.Zeta),
			Action:     model.ActionSkip,
			SkipReason: SkipHubAssets,
		})
	}

	return items
}

func (b *Builder) escapeItem(chain model.EVMBalance, usdValue decimal.Decimal, evmAddress string) model.PreviewItem {
	if evmAddress == "" {
		return model.PreviewItem{
			Chain:      chain.Name,
			Asset:      "ETH",
			Balance:    chain.Balance,
			USDValue:   usdValue,
			Action:     model.ActionSkip,
			SkipReason: SkipNoEVMAddress,
		}
	}

	maxSendable := b.policy.MaxSendable(chain.Balance, gas.ChainEVM)
	item := model.PreviewItem{
		Chain:            chain.Name,
		Asset:            "ETH",
		Balance:          chain.Balance,
		USDValue:         usdValue,
		Action:           model.ActionTransfer,
		Destination:      evmAddress,
		EstimatedReceive: &maxSendable,
	}
	if maxSendable.LessThanOrEqual(decimal.Zero) {
		item.Warning = WarnInsufficientGas
	}
	return item
}

func (b *Builder) havenItem(chain model.EVMBalance, usdValue decimal.Decimal, evmAddress string) model.PreviewItem {
	if b.policy.IsDust(usdValue) {
		threshold := b.policy.DustThreshold()

		if evmAddress != "" {
			maxSendable := b.policy.MaxSendable(chain.Balance, gas.ChainEVM)
			return model.PreviewItem{
				Chain:            chain.Name,
				Asset:            "ETH",
				Balance:          chain.Balance,
				USDValue:         usdValue,
				Action:           model.ActionTransfer,
				Destination:      evmAddress,
				EstimatedReceive: &maxSendable,
				Warning:          fmt.Sprintf("Below $%s threshold - transferring to fallback address", threshold),
			}
		}

		return model.PreviewItem{
			Chain:      chain.Name,
			Asset:      "ETH",
			Balance:    chain.Balance,
			USDValue:   usdValue,
			Action:     model.ActionSkip,
			SkipReason: fmt.Sprintf("Dust amount (below $%s)", threshold),
			Warning:    WarnAddFallbackAddress,
		}
	}

	// Above the dust threshold: route through the ZetaChain gateway. The
	// estimated BTC receive is filled in by the estimation enricher.
	return model.PreviewItem{
		Chain:       chain.Name,
		Asset:       "ETH",
		Balance:     chain.Balance,
		USDValue:    usdValue,
		Action:      model.ActionSwap,
		Destination: SwapDestination,
	}
}
