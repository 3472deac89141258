package connectors

import (
	"context"

	"github.com/shopspring/decimal"
)

type ActionKind string

const (
	// ActionTransfer sends the chain's native asset to a safe address.
	ActionTransfer ActionKind = "transfer"
	// ActionApprove, ActionDeposit and ActionMonitor are the three phases
	// of a ZetaChain cross-chain swap, strictly in that order.
	ActionApprove ActionKind = "approve"
	ActionDeposit ActionKind = "deposit"
	ActionMonitor ActionKind = "monitor"
)

// Action is the uniform unit of work handed to a connector. Amount is the
// full balance in display units (BTC or ETH); connectors apply the gas
// policy themselves so a stale plan can never overdraw fees.
type Action struct {
	Kind        ActionKind
	Chain       string // chain key or display name
	ChainID     uint64 // EVM actions only
	Destination string // transfer target address
	Amount      decimal.Decimal
	// BTCDestination is the final Bitcoin address for swap phases; it is
	// abi-encoded into the gateway deposit message.
	BTCDestination string
	// DepositTxHash carries the deposit transaction into the monitor phase.
	DepositTxHash string
}

// Result is what every connector returns on success.
type Result struct {
	TxHash string
	// Warning surfaces non-fatal caveats, e.g. provisional settlement.
	Warning string
}

// ChainConnector is the uniform contract every chain adapter satisfies.
// Errors returned are always *ConnectorError with a canonical kind.
type ChainConnector interface {
	ExecuteAction(ctx context.Context, action Action) (*Result, error)
}
