package model

import "github.com/shopspring/decimal"

type PreviewAction string

const (
	ActionTransfer PreviewAction = "transfer"
	ActionSwap     PreviewAction = "swap"
	ActionSkip     PreviewAction = "skip"
)

// PreviewItem is one row of the execution preview: what will happen to one
// (chain, asset) pair when the run is confirmed. Items are produced fresh on
// every planning pass; only the estimation enricher may fill
// EstimatedReceive afterwards.
type PreviewItem struct {
	Chain            string           `json:"chain"`
	Asset            string           `json:"asset"`
	Balance          decimal.Decimal  `json:"balance"`
	USDValue         decimal.Decimal  `json:"usd_value"`
	Action           PreviewAction    `json:"action"`
	Destination      string           `json:"destination"`
	EstimatedReceive *decimal.Decimal `json:"estimated_receive,omitempty"`
	SkipReason       string           `json:"skip_reason,omitempty"`
	Warning          string           `json:"warning,omitempty"`
}
