package planner

import (
	"reflect"
	"testing"

	"github.com/shopspring/decimal"

	"panicpod/src/gas"
	"panicpod/src/model"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testBuilder(t *testing.T) *Builder {
	t.Helper()

	policy, err := gas.NewPolicy(gas.Config{
		BTCFeeReserveSats: 10000,
		EVMGasReserve:     dec("0.005"),
		DustThresholdUSD:  dec("50"),
	})
	if err != nil {
		t.Fatalf("unexpected policy error: %v", err)
	}
	return NewBuilder(policy)
}

func testStrategy() *model.PanicStrategy {
	return &model.PanicStrategy{
		Escape: &model.EscapeConfig{
			BTCAddress: "tb1pexampleexampleexampleexampleexample00",
			EVMAddress: "0x1111111111111111111111111111111111111111",
		},
		Haven: &model.HavenConfig{
			BTCAddress: "tb1pexampleexampleexampleexampleexample00",
			EVMAddress: "0x1111111111111111111111111111111111111111",
		},
	}
}

func testBalances() *model.BalanceSnapshot {
	return &model.BalanceSnapshot{
		BTC: dec("0.5"),
		EVM: []model.EVMBalance{
			{Chain: "sepolia", Name: "Sepolia", Balance: dec("1.2")},
			{Chain: "base", Name: "Base Sepolia", Balance: dec("0")},
			{Chain: "linea", Name: "Linea Sepolia", Balance: dec("0.08")},
		},
		ZetaNative: dec("3"),
	}
}

func testPrices() *model.PriceSnapshot {
	return &model.PriceSnapshot{
		Bitcoin:  dec("60000"),
		Ethereum: dec("2500"),
		Zeta:     dec("0.5"),
	}
}

func TestBuildPlanNilInputsYieldEmptyPlan(t *testing.T) {
	builder := testBuilder(t)

	cases := []struct {
		name string
		plan []model.PreviewItem
	}{
		{"nil strategy", builder.BuildPlan(model.ModeEscape, nil, testBalances(), testPrices())},
		{"nil balances", builder.BuildPlan(model.ModeEscape, testStrategy(), nil, testPrices())},
		{"nil prices", builder.BuildPlan(model.ModeEscape, testStrategy(), testBalances(), nil)},
		{"empty mode", builder.BuildPlan("", testStrategy(), testBalances(), testPrices())},
		{"unconfigured mode", builder.BuildPlan(model.ModeHaven, &model.PanicStrategy{Escape: &model.EscapeConfig{BTCAddress: "x"}}, testBalances(), testPrices())},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.plan == nil {
				t.Fatalf("expected empty plan, got nil")
			}
			if len(tc.plan) != 0 {
				t.Fatalf("expected empty plan, got %d items", len(tc.plan))
			}
		})
	}
}

func TestBuildPlanDeterministicOrder(t *testing.T) {
	builder := testBuilder(t)

	first := builder.BuildPlan(model.ModeEscape, testStrategy(), testBalances(), testPrices())
	second := builder.BuildPlan(model.ModeEscape, testStrategy(), testBalances(), testPrices())

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("expected identical plans for identical inputs")
	}

	wantChains := []string{ChainBitcoin, "Sepolia", "Base Sepolia", "Linea Sepolia", ChainZetaChain}
	if len(first) != len(wantChains) {
		t.Fatalf("expected %d items, got %d", len(wantChains), len(first))
	}
	for i, chain := range wantChains {
		if first[i].Chain != chain {
			t.Fatalf("item %d: expected chain %s, got %s", i, chain, first[i].Chain)
		}
	}
}

func TestBuildPlanEscapeMode(t *testing.T) {
	builder := testBuilder(t)

	plan := builder.BuildPlan(model.ModeEscape, testStrategy(), testBalances(), testPrices())

	btc := plan[0]
	if btc.Action != model.ActionTransfer || btc.Destination != testStrategy().Escape.BTCAddress {
		t.Fatalf("expected BTC transfer to safe address, got %+v", btc)
	}
	if btc.EstimatedReceive == nil || !btc.EstimatedReceive.Equal(dec("0.4999")) {
		t.Fatalf("expected BTC estimated receive 0.4999, got %v", btc.EstimatedReceive)
	}

	sepolia := plan[1]
	if sepolia.Action != model.ActionTransfer || sepolia.Destination != "0x1111111111111111111111111111111111111111" {
		t.Fatalf("expected sepolia transfer to fallback address, got %+v", sepolia)
	}
	if sepolia.EstimatedReceive == nil || !sepolia.EstimatedReceive.Equal(dec("1.195")) {
		t.Fatalf("expected sepolia estimated receive 1.195, got %v", sepolia.EstimatedReceive)
	}

	base := plan[2]
	if base.Action != model.ActionSkip || base.SkipReason != SkipNoBalance {
		t.Fatalf("expected zero-balance skip, got %+v", base)
	}

	zeta := plan[4]
	if zeta.Action != model.ActionSkip || zeta.SkipReason != SkipHubAssets {
		t.Fatalf("expected hub asset skip, got %+v", zeta)
	}
}

func TestBuildPlanEscapeWithoutEVMAddress(t *testing.T) {
	builder := testBuilder(t)
	strat := &model.PanicStrategy{Escape: &model.EscapeConfig{BTCAddress: "tb1pexample"}}

	plan := builder.BuildPlan(model.ModeEscape, strat, testBalances(), testPrices())

	for _, item := range plan[1:4] {
		if item.Balance.IsZero() {
			continue
		}
		if item.Action != model.ActionSkip || item.SkipReason != SkipNoEVMAddress {
			t.Fatalf("expected EVM skip without fallback address, got %+v", item)
		}
	}
}

func TestBuildPlanHavenSwapsAboveDustThreshold(t *testing.T) {
	builder := testBuilder(t)

	// 1.2 ETH at $2500 is $3000, far above the $50 threshold.
	plan := builder.BuildPlan(model.ModeHaven, testStrategy(), testBalances(), testPrices())

	sepolia := plan[1]
	if sepolia.Action != model.ActionSwap {
		t.Fatalf("expected swap action, got %s", sepolia.Action)
	}
	if sepolia.Destination != SwapDestination {
		t.Fatalf("expected destination %q, got %q", SwapDestination, sepolia.Destination)
	}
	if sepolia.EstimatedReceive != nil {
		t.Fatalf("expected estimate to be left for the enricher, got %v", sepolia.EstimatedReceive)
	}
}

func TestBuildPlanHavenDustWithFallbackTransfers(t *testing.T) {
	builder := testBuilder(t)
	balances := &model.BalanceSnapshot{
		EVM: []model.EVMBalance{
			// 0.012 ETH at $2500 is $30, below the $50 threshold.
			{Chain: "sepolia", Name: "Sepolia", Balance: dec("0.012")},
		},
	}

	plan := builder.BuildPlan(model.ModeHaven, testStrategy(), balances, testPrices())

	if len(plan) != 1 {
		t.Fatalf("expected one item, got %d", len(plan))
	}
	item := plan[0]
	if item.Action != model.ActionTransfer {
		t.Fatalf("expected dust to transfer to fallback, got %s", item.Action)
	}
	if item.Warning != "Below $50 threshold - transferring to fallback address" {
		t.Fatalf("unexpected warning: %q", item.Warning)
	}
}

func TestBuildPlanHavenDustWithoutFallbackSkips(t *testing.T) {
	builder := testBuilder(t)
	strat := &model.PanicStrategy{Haven: &model.HavenConfig{BTCAddress: "tb1pexample"}}
	balances := &model.BalanceSnapshot{
		EVM: []model.EVMBalance{
			{Chain: "sepolia", Name: "Sepolia", Balance: dec("0.012")},
		},
	}

	plan := builder.BuildPlan(model.ModeHaven, strat, balances, testPrices())

	item := plan[0]
	if item.Action != model.ActionSkip {
		t.Fatalf("expected dust skip without fallback, got %s", item.Action)
	}
	if item.SkipReason != "Dust amount (below $50)" {
		t.Fatalf("unexpected skip reason: %q", item.SkipReason)
	}
	if item.Warning != WarnAddFallbackAddress {
		t.Fatalf("unexpected warning: %q", item.Warning)
	}
}

func TestBuildPlanHavenSwapWithoutFallbackStillSwaps(t *testing.T) {
	builder := testBuilder(t)
	strat := &model.PanicStrategy{Haven: &model.HavenConfig{BTCAddress: "tb1pexample"}}
	balances := &model.BalanceSnapshot{
		EVM: []model.EVMBalance{
			// 0.08 ETH at $2500 is $200; no fallback needed for swaps.
			{Chain: "sepolia", Name: "Sepolia", Balance: dec("0.08")},
		},
	}

	plan := builder.BuildPlan(model.ModeHaven, strat, balances, testPrices())

	if plan[0].Action != model.ActionSwap || plan[0].Destination != SwapDestination {
		t.Fatalf("expected swap without fallback address, got %+v", plan[0])
	}
}

func TestBuildPlanUnspendableBTCKeepsItemWithWarning(t *testing.T) {
	builder := testBuilder(t)
	balances := &model.BalanceSnapshot{BTC: dec("0.00005")}

	plan := builder.BuildPlan(model.ModeEscape, testStrategy(), balances, testPrices())

	if len(plan) != 1 {
		t.Fatalf("expected one item, got %d", len(plan))
	}
	if plan[0].Action != model.ActionTransfer {
		t.Fatalf("expected unspendable BTC to stay a transfer, got %s", plan[0].Action)
	}
	if plan[0].Warning != WarnInsufficientFees {
		t.Fatalf("expected fee warning, got %q", plan[0].Warning)
	}
}

func TestBuildPlanEveryItemHasExactlyOneDisposition(t *testing.T) {
	builder := testBuilder(t)

	for _, mode := range []model.StrategyMode{model.ModeEscape, model.ModeHaven} {
		plan := builder.BuildPlan(mode, testStrategy(), testBalances(), testPrices())
		for _, item := range plan {
			switch item.Action {
			case model.ActionTransfer, model.ActionSwap:
				if item.SkipReason != "" {
					t.Fatalf("%s/%s: actionable item carries skip reason", mode, item.Chain)
				}
				if item.Destination == "" {
					t.Fatalf("%s/%s: actionable item has no destination", mode, item.Chain)
				}
			case model.ActionSkip:
				if item.SkipReason == "" {
					t.Fatalf("%s/%s: skip item has no reason", mode, item.Chain)
				}
			default:
				t.Fatalf("%s/%s: unknown action %q", mode, item.Chain, item.Action)
			}
		}
	}
}
