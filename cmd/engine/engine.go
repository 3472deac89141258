package engine

import (
	"time"

	"github.com/sirupsen/logrus"

	"panicpod/src/connectors"
	"panicpod/src/estimation"
	"panicpod/src/execution"
	"panicpod/src/gas"
	"panicpod/src/marketdata"
	"panicpod/src/planner"
	"panicpod/src/server"
	"panicpod/src/strategy"
	"panicpod/src/trigger"
)

// Components is the fully wired evacuation engine.
type Components struct {
	Log        *logrus.Entry
	Registry   connectors.Registry
	Store      *execution.Store
	Strategies *strategy.Registry
	Previewer  *strategy.Previewer
	Executor   *strategy.Executor
	Parser     *trigger.Client
}

// Build wires every component from environment configuration.
func Build() *Components {
	log := logrus.WithField("app", "panicpod")

	policy := gas.MustPolicy(gas.GetConfig())
	connCfg := connectors.GetConfig()
	registry := connectors.NewRegistry(connCfg)
	marketCfg := marketdata.GetConfig()

	readers, hub := marketdata.DialBalanceReaders(registry, log)
	balances := marketdata.NewBalanceService(marketCfg, registry, readers, hub, log)
	prices := marketdata.NewPriceService(marketCfg, log)

	var quoter estimation.Quoter
	if contractQuoter, err := estimation.DialContractQuoter(registry.Zeta.RPCURL, registry.PodSwapAddress); err != nil {
		log.WithError(err).Warn("swap estimation disabled, hub chain RPC unreachable")
	} else {
		quoter = contractQuoter
	}

	var enricher *estimation.Enricher
	if quoter != nil {
		enricher = estimation.NewEnricher(quoter, registry, log)
	}

	builder := planner.NewBuilder(policy)
	previewer := strategy.NewPreviewer(log, builder, enricher, balances, prices)

	walletTimeout := time.Duration(connCfg.WalletTimeoutS) * time.Second
	btcProvider := connectors.NewRemoteBitcoinProvider(connCfg.BitcoinWalletURL, walletTimeout)
	evmProvider := connectors.NewRemoteEvmProvider(connCfg.EvmWalletURL, walletTimeout)

	chainReaders := connectors.DialChainReaders(registry, log)
	settlement := connectors.NewCCTXChecker(registry.ZetaAPI, log)

	provider := strategy.StaticConnectorProvider{
		execution.ConnectorBitcoin: connectors.NewBitcoinConnector(btcProvider, policy, log),
		execution.ConnectorEVM:     connectors.NewEvmConnector(evmProvider, policy, registry, log),
		execution.ConnectorZeta:    connectors.NewZetaConnector(evmProvider, chainReaders, settlement, registry, log),
	}

	store := execution.NewStore()
	executor := strategy.NewExecutor(log, provider, store, registry)

	return &Components{
		Log:        log,
		Registry:   registry,
		Store:      store,
		Strategies: strategy.NewRegistry(),
		Previewer:  previewer,
		Executor:   executor,
		Parser:     trigger.NewClient(trigger.GetConfig(), log),
	}
}

// ServerDeps maps the wired components onto the HTTP surface.
func (c *Components) ServerDeps() server.Deps {
	return server.Deps{
		Strategies: c.Strategies,
		Previewer:  c.Previewer,
		Parser:     c.Parser,
		Launcher:   c.Executor,
		ExecStore:  c.Store,
	}
}

// Engine runs the API server with a fully wired engine.
type Engine struct{}

func (e *Engine) Start() error {
	components := Build()
	server.StartServer(server.GetConfig().Port, components.ServerDeps())
	return nil
}
