package estimation

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"

	"panicpod/src/connectors"
	"panicpod/src/model"
)

const (
	WarnNoZRC20  = "Estimation unavailable - ZRC20 address not configured"
	WarnRPCError = "Estimation unavailable - RPC error"
)

// Enricher fills EstimatedReceive on swap items of a built plan by quoting
// the hub chain. Enrichment is additive only: it never changes an item's
// action, destination or any other planner-determined field, and an
// estimation failure degrades the preview instead of failing it.
type Enricher struct {
	quoter   Quoter
	registry connectors.Registry
	log      *logger.Entry
}

func NewEnricher(quoter Quoter, registry connectors.Registry, log *logger.Entry) *Enricher {
	if log == nil {
		log = logger.NewEntry(logger.StandardLogger())
	}
	return &Enricher{quoter: quoter, registry: registry, log: log}
}

// Enrich returns a new item slice; the input is left untouched.
func (e *Enricher) Enrich(ctx context.Context, items []model.PreviewItem) []model.PreviewItem {
	enriched := make([]model.PreviewItem, len(items))
	copy(enriched, items)

	for i := range enriched {
		if enriched[i].Action != model.ActionSwap {
			continue
		}
		e.enrichItem(ctx, &enriched[i])
	}
	return enriched
}

func (e *Enricher) enrichItem(ctx context.Context, item *model.PreviewItem) {
	chain, ok := e.registry.ChainByName(item.Chain)
	if !ok || !common.IsHexAddress(chain.ZRC20) {
		item.Warning = WarnNoZRC20
		return
	}

	token := common.HexToAddress(chain.ZRC20)
	if token == (common.Address{}) {
		item.Warning = WarnNoZRC20
		return
	}

	amountWei := item.Balance.Shift(18).BigInt()
	quote, err := e.quoter.EstimateSwapToBTC(ctx, token, amountWei)
	if err != nil {
		e.log.WithError(err).WithField("chain", item.Chain).Warn("swap estimation failed")
		item.Warning = WarnRPCError
		return
	}

	// Contract amounts are satoshis.
	estimated := decimal.NewFromBigInt(quote.NetAmount, -8)
	item.EstimatedReceive = &estimated
}
