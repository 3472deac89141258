package strategy

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"panicpod/src/estimation"
	"panicpod/src/model"
	"panicpod/src/planner"
)

// BalanceSource provides the balance snapshot for one planning pass.
type BalanceSource interface {
	Snapshot(ctx context.Context, btcAddress, evmAddress string) model.BalanceSnapshot
}

// PriceSource provides USD unit prices.
type PriceSource interface {
	Prices(ctx context.Context) (model.PriceSnapshot, error)
}

// Preview bundles the full planning output: the enriched plan plus the
// snapshots it was computed from.
type Preview struct {
	Mode     model.StrategyMode    `json:"mode"`
	Items    []model.PreviewItem   `json:"items"`
	Balances model.BalanceSnapshot `json:"balances"`
	Prices   model.PriceSnapshot   `json:"prices"`
}

// Previewer composes balance and price fetching, plan building and swap
// estimation into one planning pass.
type Previewer struct {
	logger   *logrus.Entry
	builder  *planner.Builder
	enricher *estimation.Enricher
	balances BalanceSource
	prices   PriceSource
}

func NewPreviewer(logger *logrus.Entry, builder *planner.Builder, enricher *estimation.Enricher, balances BalanceSource, prices PriceSource) *Previewer {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}

	return &Previewer{
		logger:   logger,
		builder:  builder,
		enricher: enricher,
		balances: balances,
		prices:   prices,
	}
}

// BuildPreview runs one planning pass for the given mode. A price failure
// with no cached snapshot fails the preview; balance sources degrade to
// zero on their own.
func (p *Previewer) BuildPreview(ctx context.Context, mode model.StrategyMode, strat *model.PanicStrategy) (*Preview, error) {
	btcAddress, evmAddress, ok := strat.Addresses(mode)
	if !ok {
		return nil, fmt.Errorf("no strategy configured for mode %q", mode)
	}

	prices, err := p.prices.Prices(ctx)
	if err != nil {
		return nil, fmt.Errorf("price fetch failed: %w", err)
	}

	balances := p.balances.Snapshot(ctx, btcAddress, evmAddress)

	items := p.builder.BuildPlan(mode, strat, &balances, &prices)
	if p.enricher != nil {
		items = p.enricher.Enrich(ctx, items)
	}

	p.logger.WithFields(logrus.Fields{"mode": mode, "items": len(items)}).Debug("preview built")

	return &Preview{
		Mode:     mode,
		Items:    items,
		Balances: balances,
		Prices:   prices,
	}, nil
}
