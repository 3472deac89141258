package execution

import (
	"fmt"

	"panicpod/src/connectors"
	"panicpod/src/model"
	"panicpod/src/planner"
)

// Connector routing keys. The orchestrator resolves these through its
// ConnectorProvider.
const (
	ConnectorBitcoin = "bitcoin"
	ConnectorEVM     = "evm"
	ConnectorZeta    = "zeta"
)

// Display name of the aggregated EVM execution card.
const evmChainName = "EVM Chains"

// Swap substep names, in their strict execution order.
const (
	StepApproveGateway = "Approve Gateway"
	StepSendToZeta     = "Send to ZetaChain"
	StepSwapWithdraw   = "Swap & Withdraw to BTC"
)

// StepActions pairs one execution step with the connector work backing it.
// Skip steps carry no action. For composite swap steps, SubActions aligns
// index-for-index with the step's SubSteps.
type StepActions struct {
	Connector  string
	Action     *connectors.Action
	SubActions []*connectors.Action
}

// ChainPlan is the per-chain action list aligned with the seeded
// ChainExecution at the same index.
type ChainPlan struct {
	Chain string
	Steps []StepActions
}

// Seed builds a fresh execution tree and its aligned action plan from a
// confirmed preview. Every run starts from a new tree; nothing is reused
// across attempts. Participating chains appear in plan order: Bitcoin, the
// EVM aggregate, then ZetaChain. btcAddress is the safe address swap items
// withdraw to; plan items only carry the "BTC via ZetaChain" label.
func Seed(plan []model.PreviewItem, btcAddress string, registry connectors.Registry) ([]model.ChainExecution, []ChainPlan) {
	var (
		executions []model.ChainExecution
		chainPlans []ChainPlan
	)

	var (
		evmExec *model.ChainExecution
		evmPlan *ChainPlan
	)

	for _, item := range plan {
		switch item.Chain {
		case planner.ChainBitcoin:
			exec, actions := seedBitcoin(item)
			executions = append(executions, exec)
			chainPlans = append(chainPlans, actions)

		case planner.ChainZetaChain:
			exec, actions := seedZeta(item)
			executions = append(executions, exec)
			chainPlans = append(chainPlans, actions)

		default:
			if evmExec == nil {
				executions = append(executions, model.ChainExecution{Chain: evmChainName, Status: model.StatusPending})
				chainPlans = append(chainPlans, ChainPlan{Chain: evmChainName})
				evmExec = &executions[len(executions)-1]
				evmPlan = &chainPlans[len(chainPlans)-1]
			}
			step, actions := seedEVMStep(item, btcAddress, registry)
			evmExec.Steps = append(evmExec.Steps, step)
			evmPlan.Steps = append(evmPlan.Steps, actions)
		}
	}

	// The EVM aggregate may be all-skip; recompute every chain root so
	// such chains start terminal-success.
	for i := range executions {
		executions[i].Status = Aggregate(executions[i].Steps)
	}

	return executions, chainPlans
}

func seedBitcoin(item model.PreviewItem) (model.ChainExecution, ChainPlan) {
	step := model.ExecutionStep{Name: "Send BTC", Status: model.StatusPending, Warning: item.Warning}
	actions := StepActions{Connector: ConnectorBitcoin}

	if item.Action == model.ActionSkip {
		step.SkipReason = item.SkipReason
		step.Status = model.StatusSuccess
	} else {
		actions.Action = &connectors.Action{
			Kind:        connectors.ActionTransfer,
			Chain:       item.Chain,
			Destination: item.Destination,
			Amount:      item.Balance,
		}
	}

	return model.ChainExecution{
			Chain:  planner.ChainBitcoin,
			Status: model.StatusPending,
			Steps:  []model.ExecutionStep{step},
		}, ChainPlan{
			Chain: planner.ChainBitcoin,
			Steps: []StepActions{actions},
		}
}

func seedZeta(item model.PreviewItem) (model.ChainExecution, ChainPlan) {
	// Hub assets never move; the chain is seeded as one terminal skip.
	step := model.ExecutionStep{
		Name:       "ZETA assets",
		Status:     model.StatusSuccess,
		SkipReason: item.SkipReason,
	}
	return model.ChainExecution{
			Chain:  planner.ChainZetaChain,
			Status: model.StatusPending,
			Steps:  []model.ExecutionStep{step},
		}, ChainPlan{
			Chain: planner.ChainZetaChain,
			Steps: []StepActions{{Connector: ConnectorZeta}},
		}
}

func seedEVMStep(item model.PreviewItem, btcAddress string, registry connectors.Registry) (model.ExecutionStep, StepActions) {
	switch item.Action {
	case model.ActionSkip:
		return model.ExecutionStep{
			Name:       fmt.Sprintf("%s: skipped", item.Chain),
			Status:     model.StatusSuccess,
			SkipReason: item.SkipReason,
			Warning:    item.Warning,
		}, StepActions{Connector: ConnectorEVM}

	case model.ActionSwap:
		subSteps := []model.ExecutionStep{
			{Name: StepApproveGateway, Status: model.StatusPending},
			{Name: StepSendToZeta, Status: model.StatusPending},
			{Name: StepSwapWithdraw, Status: model.StatusPending},
		}

		base := connectors.Action{
			Chain:          item.Chain,
			Amount:         item.Balance,
			BTCDestination: btcAddress,
		}
		if chain, ok := registry.ChainByName(item.Chain); ok {
			base.ChainID = chain.ChainID
		}

		approve, deposit, monitor := base, base, base
		approve.Kind = connectors.ActionApprove
		deposit.Kind = connectors.ActionDeposit
		monitor.Kind = connectors.ActionMonitor

		return model.ExecutionStep{
				Name:     fmt.Sprintf("Swap ETH to BTC (%s)", item.Chain),
				Status:   model.StatusPending,
				SubSteps: subSteps,
				Warning:  item.Warning,
			}, StepActions{
				Connector:  ConnectorZeta,
				SubActions: []*connectors.Action{&approve, &deposit, &monitor},
			}

	default: // transfer
		action := &connectors.Action{
			Kind:        connectors.ActionTransfer,
			Chain:       item.Chain,
			Destination: item.Destination,
			Amount:      item.Balance,
		}
		if chain, ok := registry.ChainByName(item.Chain); ok {
			action.ChainID = chain.ChainID
		}

		return model.ExecutionStep{
			Name:    fmt.Sprintf("Send ETH (%s)", item.Chain),
			Status:  model.StatusPending,
			Warning: item.Warning,
		}, StepActions{Connector: ConnectorEVM, Action: action}
	}
}
