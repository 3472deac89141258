package strategy

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"panicpod/src/connectors"
	"panicpod/src/execution"
	"panicpod/src/model"
)

// ConnectorProvider resolves the chain connector backing an execution
// step. Keys are the execution package's connector routing constants.
type ConnectorProvider interface {
	ConnectorForChain(key string) (connectors.ChainConnector, error)
}

type StaticConnectorProvider map[string]connectors.ChainConnector

func (p StaticConnectorProvider) ConnectorForChain(key string) (connectors.ChainConnector, error) {
	connector, ok := p[key]
	if !ok {
		return nil, fmt.Errorf("connector for chain %q not found", key)
	}

	return connector, nil
}

// Executor drives a confirmed evacuation plan to completion. Chains run
// concurrently; the steps within a chain run strictly in order, and the
// first failure on a chain aborts that chain's remaining work without
// touching its siblings.
type Executor struct {
	logger   *logrus.Entry
	provider ConnectorProvider
	store    *execution.Store
	registry connectors.Registry
	now      func() time.Time
}

func NewExecutor(logger *logrus.Entry, provider ConnectorProvider, store *execution.Store, registry connectors.Registry) *Executor {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}

	return &Executor{logger: logger, provider: provider, store: store, registry: registry, now: time.Now}
}

// Execute seeds the run state from the plan and blocks until every chain
// has finished or failed. Only one run may be in flight at a time; a
// second call while launched returns execution.ErrAlreadyLaunched.
func (e *Executor) Execute(ctx context.Context, mode model.StrategyMode, strat *model.PanicStrategy, plan []model.PreviewItem) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if strat == nil {
		return fmt.Errorf("strategy is nil")
	}

	btcAddress, _, ok := strat.Addresses(mode)
	if !ok {
		return fmt.Errorf("no destination addresses configured for mode %q", mode)
	}

	tree, chainPlans := execution.Seed(plan, btcAddress, e.registry)
	if err := e.store.Start(tree); err != nil {
		return err
	}

	runID := uuid.New().String()
	log := e.logger.WithFields(logrus.Fields{"run_id": runID, "mode": mode})

	e.store.AppendLog("Evacuation sequence initiated", model.LogInfo)
	log.WithField("chains", len(tree)).Info("evacuation run started")

	var wg sync.WaitGroup
	for i := range chainPlans {
		wg.Add(1)
		go func(chainIdx int) {
			defer wg.Done()
			e.runChain(ctx, log, chainIdx, tree[chainIdx], chainPlans[chainIdx])
		}(i)
	}
	wg.Wait()

	e.finish(log)
	return nil
}

func (e *Executor) runChain(ctx context.Context, log *logrus.Entry, chainIdx int, chain model.ChainExecution, plan execution.ChainPlan) {
	chainLog := log.WithField("chain", plan.Chain)

	for stepIdx, actions := range plan.Steps {
		if err := ctx.Err(); err != nil {
			e.abortChain(chainLog, chainIdx, err)
			return
		}

		step := chain.Steps[stepIdx]

		if step.Skipped() {
			e.store.AppendLog(fmt.Sprintf("%s: %s", plan.Chain, step.SkipReason), model.LogInfo)
			continue
		}

		var err error
		if len(actions.SubActions) > 0 {
			err = e.runComposite(ctx, chainLog, chainIdx, stepIdx, step, actions)
		} else {
			err = e.runStep(ctx, chainLog, chainIdx, stepIdx, step, actions)
		}
		if err != nil {
			return
		}
	}
}

func (e *Executor) runStep(ctx context.Context, log *logrus.Entry, chainIdx, stepIdx int, step model.ExecutionStep, actions execution.StepActions) error {
	if err := e.store.UpdateStep(chainIdx, stepIdx, execution.StepUpdate{Status: model.StatusProcessing}); err != nil {
		return err
	}
	e.store.AppendLog(fmt.Sprintf("Processing: %s", step.Name), model.LogInfo)

	result, err := e.dispatch(ctx, actions.Connector, actions.Action)
	if err != nil {
		e.reportFailure(log, step.Name, err)
		_ = e.store.UpdateStep(chainIdx, stepIdx, execution.StepUpdate{Status: model.StatusFailed})
		_ = e.store.FailChain(chainIdx)
		return err
	}
	if err := ctx.Err(); err != nil {
		e.abortChain(log, chainIdx, err)
		return err
	}

	_ = e.store.UpdateStep(chainIdx, stepIdx, execution.StepUpdate{
		Status:  model.StatusSuccess,
		TxHash:  result.TxHash,
		Warning: result.Warning,
	})
	e.reportSuccess(log, step.Name, result)
	return nil
}

func (e *Executor) runComposite(ctx context.Context, log *logrus.Entry, chainIdx, stepIdx int, step model.ExecutionStep, actions execution.StepActions) error {
	depositTxHash := ""

	for subIdx, action := range actions.SubActions {
		if err := ctx.Err(); err != nil {
			e.abortChain(log, chainIdx, err)
			return err
		}

		sub := step.SubSteps[subIdx]

		if action.Kind == connectors.ActionMonitor {
			action.DepositTxHash = depositTxHash
		}

		if err := e.store.UpdateSubStep(chainIdx, stepIdx, subIdx, execution.StepUpdate{Status: model.StatusProcessing}); err != nil {
			return err
		}
		e.store.AppendLog(fmt.Sprintf("Processing: %s", sub.Name), model.LogInfo)

		result, err := e.dispatch(ctx, actions.Connector, action)
		if err != nil {
			e.reportFailure(log, sub.Name, err)
			_ = e.store.UpdateSubStep(chainIdx, stepIdx, subIdx, execution.StepUpdate{Status: model.StatusFailed})
			_ = e.store.FailStep(chainIdx, stepIdx)
			return err
		}

		if action.Kind == connectors.ActionDeposit {
			depositTxHash = result.TxHash
		}

		_ = e.store.UpdateSubStep(chainIdx, stepIdx, subIdx, execution.StepUpdate{
			Status:  model.StatusSuccess,
			TxHash:  result.TxHash,
			Warning: result.Warning,
		})
		e.reportSuccess(log, sub.Name, result)
	}
	return nil
}

func (e *Executor) dispatch(ctx context.Context, connectorKey string, action *connectors.Action) (*connectors.Result, error) {
	conn, err := e.provider.ConnectorForChain(connectorKey)
	if err != nil {
		return nil, err
	}
	return conn.ExecuteAction(ctx, *action)
}

func (e *Executor) reportSuccess(log *logrus.Entry, name string, result *connectors.Result) {
	message := fmt.Sprintf("%s completed", name)
	if result.TxHash != "" {
		message = fmt.Sprintf("%s completed: %s", name, result.TxHash)
	}
	e.store.AppendLog(message, model.LogSuccess)
	if result.Warning != "" {
		e.store.AppendLog(fmt.Sprintf("%s: %s", name, result.Warning), model.LogWarning)
	}
	log.WithField("tx_hash", result.TxHash).Info(message)
}

func (e *Executor) reportFailure(log *logrus.Entry, name string, err error) {
	if connectors.IsCancelled(err) {
		e.store.AppendLog(fmt.Sprintf("%s: %s", name, err.Error()), model.LogWarning)
		log.WithError(err).Warn("step cancelled by user")
		return
	}
	e.store.AppendLog(fmt.Sprintf("%s failed: %s", name, err.Error()), model.LogError)
	log.WithError(err).WithField("step", name).Error("step failed")
}

func (e *Executor) abortChain(log *logrus.Entry, chainIdx int, cause error) {
	e.store.AppendLog(fmt.Sprintf("Execution cancelled: %s", cause.Error()), model.LogWarning)
	log.WithError(cause).Warn("chain execution cancelled")
	_ = e.store.FailChain(chainIdx)
}

func (e *Executor) finish(log *logrus.Entry) {
	failed := 0
	for _, chain := range e.store.Executions() {
		if chain.Status == model.StatusFailed {
			failed++
		}
	}

	if failed == 0 {
		e.store.AppendLog("Evacuation sequence complete", model.LogSuccess)
		log.Info("evacuation run finished")
		return
	}
	e.store.AppendLog(fmt.Sprintf("Evacuation finished with %d failed chain(s)", failed), model.LogError)
	log.WithField("failed_chains", failed).Warn("evacuation run finished with failures")
}
