package connectors

import (
	"context"
	"encoding/json"
)

// BitcoinProvider is the Xverse-shaped wallet protocol: a single request
// method taking a method name and a params object. The wallet is external;
// implementations bridge to whatever transport carries the user's signer.
type BitcoinProvider interface {
	Request(ctx context.Context, method string, params any) (json.RawMessage, error)
}

// EvmProvider is the EIP-1193-shaped signer protocol consumed by the EVM
// and ZetaChain connectors: eth_accounts, eth_chainId, eth_sendTransaction,
// wallet_switchEthereumChain and wallet_addEthereumChain.
type EvmProvider interface {
	Request(ctx context.Context, method string, params ...any) (json.RawMessage, error)
}
