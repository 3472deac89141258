package model

import "github.com/shopspring/decimal"

// EVMBalance is the native-currency balance of one EVM chain. The Chain key
// matches the chain registry ("sepolia", "base", "linea"); Name is the
// display name used in preview items and execution cards.
type EVMBalance struct {
	Chain   string          `json:"chain"`
	Name    string          `json:"name"`
	Balance decimal.Decimal `json:"balance"`
}

// WrappedToken is a ZRC20 balance held on ZetaChain.
type WrappedToken struct {
	Symbol  string          `json:"symbol"`
	Balance decimal.Decimal `json:"balance"`
	Address string          `json:"address"`
}

// BalanceSnapshot is a read-only view of all tracked balances, fetched once
// per planning pass. EVM entries keep the declared chain order so plans are
// deterministic.
type BalanceSnapshot struct {
	BTC       decimal.Decimal `json:"btc"`
	EVM       []EVMBalance    `json:"evm"`
	ZetaNative decimal.Decimal `json:"zeta_native"`
	ZRC20     []WrappedToken  `json:"zrc20,omitempty"`
}

// HubTotal aggregates native ZETA plus all ZRC20 balances.
func (b *BalanceSnapshot) HubTotal() decimal.Decimal {
	total := b.ZetaNative
	for _, token := range b.ZRC20 {
		total = total.Add(token.Balance)
	}
	return total
}

// EVMTotal sums the native balances across all EVM chains.
func (b *BalanceSnapshot) EVMTotal() decimal.Decimal {
	total := decimal.Zero
	for _, eb := range b.EVM {
		total = total.Add(eb.Balance)
	}
	return total
}

// PriceSnapshot holds USD unit prices for the tracked assets. Wrapped and
// stable tokens are assumed pegged to $1 unless mapped otherwise.
type PriceSnapshot struct {
	Bitcoin  decimal.Decimal `json:"bitcoin"`
	Ethereum decimal.Decimal `json:"ethereum"`
	Zeta     decimal.Decimal `json:"zetachain"`
}
