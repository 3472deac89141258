package execution

import (
	"testing"

	"github.com/shopspring/decimal"

	"panicpod/src/connectors"
	"panicpod/src/model"
	"panicpod/src/planner"
)

const testBTCAddress = "tb1ptestdestination0000000000000000000000"

func testRegistry() connectors.Registry {
	return connectors.Registry{
		EVM: []connectors.ChainConfig{
			{Key: "sepolia", Name: "Sepolia", ChainID: 11155111},
			{Key: "base", Name: "Base Sepolia", ChainID: 84532},
		},
		Zeta: connectors.ChainConfig{Key: "zeta", Name: "ZetaChain Testnet", ChainID: 7001},
	}
}

func testPlan() []model.PreviewItem {
	return []model.PreviewItem{
		{
			Chain:       planner.ChainBitcoin,
			Asset:       "BTC",
			Balance:     decimal.RequireFromString("0.5"),
			Action:      model.ActionTransfer,
			Destination: testBTCAddress,
		},
		{
			Chain:       "Sepolia",
			Asset:       "ETH",
			Balance:     decimal.RequireFromString("1.2"),
			Action:      model.ActionSwap,
			Destination: planner.SwapDestination,
		},
		{
			Chain:      "Base Sepolia",
			Asset:      "ETH",
			Balance:    decimal.Zero,
			Action:     model.ActionSkip,
			SkipReason: planner.SkipNoBalance,
		},
		{
			Chain:      planner.ChainZetaChain,
			Asset:      "ZETA",
			Balance:    decimal.RequireFromString("3"),
			Action:     model.ActionSkip,
			SkipReason: planner.SkipHubAssets,
		},
	}
}

func TestSeedShapesTreeAndPlan(t *testing.T) {
	tree, plans := Seed(testPlan(), testBTCAddress, testRegistry())

	if len(tree) != 3 || len(plans) != 3 {
		t.Fatalf("expected 3 chains, got %d executions and %d plans", len(tree), len(plans))
	}

	wantChains := []string{planner.ChainBitcoin, "EVM Chains", planner.ChainZetaChain}
	for i, want := range wantChains {
		if tree[i].Chain != want {
			t.Fatalf("chain %d: expected %s, got %s", i, want, tree[i].Chain)
		}
		if plans[i].Chain != want {
			t.Fatalf("plan %d: expected %s, got %s", i, want, plans[i].Chain)
		}
		if len(tree[i].Steps) != len(plans[i].Steps) {
			t.Fatalf("chain %s: steps and actions are misaligned", want)
		}
	}
}

func TestSeedBitcoinTransfer(t *testing.T) {
	tree, plans := Seed(testPlan(), testBTCAddress, testRegistry())

	step := tree[0].Steps[0]
	if step.Name != "Send BTC" || step.Status != model.StatusPending {
		t.Fatalf("unexpected bitcoin step: %+v", step)
	}

	action := plans[0].Steps[0]
	if action.Connector != ConnectorBitcoin {
		t.Fatalf("expected bitcoin connector, got %s", action.Connector)
	}
	if action.Action == nil || action.Action.Kind != connectors.ActionTransfer {
		t.Fatalf("expected transfer action, got %+v", action.Action)
	}
	if action.Action.Destination != testBTCAddress {
		t.Fatalf("expected destination %s, got %s", testBTCAddress, action.Action.Destination)
	}
}

func TestSeedSwapCompositeStep(t *testing.T) {
	tree, plans := Seed(testPlan(), testBTCAddress, testRegistry())

	evm := tree[1]
	step := evm.Steps[0]
	if step.Name != "Swap ETH to BTC (Sepolia)" {
		t.Fatalf("unexpected swap step name: %s", step.Name)
	}
	if len(step.SubSteps) != 3 {
		t.Fatalf("expected 3 substeps, got %d", len(step.SubSteps))
	}

	wantNames := []string{StepApproveGateway, StepSendToZeta, StepSwapWithdraw}
	for i, want := range wantNames {
		if step.SubSteps[i].Name != want {
			t.Fatalf("substep %d: expected %s, got %s", i, want, step.SubSteps[i].Name)
		}
		if step.SubSteps[i].Status != model.StatusPending {
			t.Fatalf("substep %d: expected pending, got %s", i, step.SubSteps[i].Status)
		}
	}

	actions := plans[1].Steps[0]
	if actions.Connector != ConnectorZeta {
		t.Fatalf("expected zeta connector for swaps, got %s", actions.Connector)
	}
	if len(actions.SubActions) != 3 {
		t.Fatalf("expected 3 subactions, got %d", len(actions.SubActions))
	}

	wantKinds := []connectors.ActionKind{connectors.ActionApprove, connectors.ActionDeposit, connectors.ActionMonitor}
	for i, want := range wantKinds {
		sub := actions.SubActions[i]
		if sub.Kind != want {
			t.Fatalf("subaction %d: expected %s, got %s", i, want, sub.Kind)
		}
		if sub.ChainID != 11155111 {
			t.Fatalf("subaction %d: expected sepolia chain id, got %d", i, sub.ChainID)
		}
		if sub.BTCDestination != testBTCAddress {
			t.Fatalf("subaction %d: expected real BTC destination, got %q", i, sub.BTCDestination)
		}
	}
}

func TestSeedSkipNodesAreTerminal(t *testing.T) {
	tree, plans := Seed(testPlan(), testBTCAddress, testRegistry())

	evmSkip := tree[1].Steps[1]
	if evmSkip.Status != model.StatusSuccess || evmSkip.SkipReason != planner.SkipNoBalance {
		t.Fatalf("expected terminal skip step, got %+v", evmSkip)
	}
	if plans[1].Steps[1].Action != nil || plans[1].Steps[1].SubActions != nil {
		t.Fatalf("expected skip step to carry no actions")
	}

	zeta := tree[2]
	if zeta.Status != model.StatusSuccess {
		t.Fatalf("expected all-skip zeta chain to start success, got %s", zeta.Status)
	}
	if zeta.Steps[0].SkipReason != planner.SkipHubAssets {
		t.Fatalf("unexpected zeta skip reason: %q", zeta.Steps[0].SkipReason)
	}
}

func TestSeedEVMTransferStep(t *testing.T) {
	plan := []model.PreviewItem{{
		Chain:       "Sepolia",
		Asset:       "ETH",
		Balance:     decimal.RequireFromString("1.2"),
		Action:      model.ActionTransfer,
		Destination: "0x1111111111111111111111111111111111111111",
	}}

	tree, plans := Seed(plan, testBTCAddress, testRegistry())

	if len(tree) != 1 {
		t.Fatalf("expected one aggregate chain, got %d", len(tree))
	}
	step := tree[0].Steps[0]
	if step.Name != "Send ETH (Sepolia)" {
		t.Fatalf("unexpected step name: %s", step.Name)
	}

	action := plans[0].Steps[0]
	if action.Connector != ConnectorEVM {
		t.Fatalf("expected evm connector, got %s", action.Connector)
	}
	if action.Action.ChainID != 11155111 {
		t.Fatalf("expected chain id resolution, got %d", action.Action.ChainID)
	}
}

func TestSeedEmptyPlan(t *testing.T) {
	tree, plans := Seed(nil, testBTCAddress, testRegistry())
	if len(tree) != 0 || len(plans) != 0 {
		t.Fatalf("expected empty seed for empty plan")
	}
}
