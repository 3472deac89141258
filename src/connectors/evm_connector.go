package connectors

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"

	"panicpod/src/gas"
)

// EvmConnector sends native-currency transfers through an EIP-1193 signer,
// switching the signer to the target chain first. Sending on the wrong
// chain is a fund-loss risk, so the switch must settle before anything is
// submitted.
type EvmConnector struct {
	provider EvmProvider
	policy   gas.Policy
	registry Registry
	log      *logger.Entry

	// settleDelay gives the wallet time to finish a network switch before
	// the chain id is re-checked.
	settleDelay time.Duration
}

func NewEvmConnector(provider EvmProvider, policy gas.Policy, registry Registry, log *logger.Entry) *EvmConnector {
	if log == nil {
		log = logger.NewEntry(logger.StandardLogger())
	}
	return &EvmConnector{
		provider:    provider,
		policy:      policy,
		registry:    registry,
		log:         log,
		settleDelay: time.Duration(GetConfig().SwitchSettleMS) * time.Millisecond,
	}
}

func (c *EvmConnector) ExecuteAction(ctx context.Context, action Action) (*Result, error) {
	if action.Kind != ActionTransfer {
		return nil, NewError(KindInvalidInput, fmt.Sprintf("evm connector does not support action %q", action.Kind))
	}

	if !common.IsHexAddress(action.Destination) {
		return nil, NewError(KindInvalidInput, "Invalid Ethereum address format")
	}

	chain, ok := c.registry.ChainByID(action.ChainID)
	if !ok {
		return nil, NewError(KindInvalidInput, fmt.Sprintf("unsupported chain id %d", action.ChainID))
	}

	if err := ensureChain(ctx, c.provider, chain, c.settleDelay, c.log); err != nil {
		return nil, err
	}

	maxSendable := c.policy.MaxSendable(action.Amount, gas.ChainEVM)
	if maxSendable.LessThanOrEqual(decimal.Zero) {
		return nil, NewError(
			KindInsufficientFunds,
			fmt.Sprintf("Insufficient balance to cover gas. Need at least %s ETH for gas.", c.policy.Reserve(gas.ChainEVM)),
		)
	}

	from, err := connectedAccount(ctx, c.provider)
	if err != nil {
		return nil, err
	}

	c.log.WithFields(logger.Fields{
		"chain":       chain.Name,
		"destination": action.Destination,
		"amount":      maxSendable.String(),
	}).Info("submitting native transfer")

	txHash, err := sendTransaction(ctx, c.provider, txParams{
		From:  from,
		To:    action.Destination,
		Value: weiHex(maxSendable),
	})
	if err != nil {
		return nil, err
	}

	return &Result{TxHash: txHash}, nil
}

type txParams struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Value string `json:"value,omitempty"`
	Data  string `json:"data,omitempty"`
}

func sendTransaction(ctx context.Context, provider EvmProvider, params txParams) (string, error) {
	raw, err := provider.Request(ctx, "eth_sendTransaction", params)
	if err != nil {
		return "", classifyProviderError(err)
	}

	var txHash string
	if err := json.Unmarshal(raw, &txHash); err != nil {
		return "", &ConnectorError{Kind: KindUnknown, Message: "malformed eth_sendTransaction response", Err: err}
	}
	if txHash == "" {
		return "", NewError(KindUnknown, "no transaction hash returned")
	}
	return txHash, nil
}

func connectedAccount(ctx context.Context, provider EvmProvider) (string, error) {
	raw, err := provider.Request(ctx, "eth_accounts")
	if err != nil {
		return "", classifyProviderError(err)
	}

	var accounts []string
	if err := json.Unmarshal(raw, &accounts); err != nil {
		return "", &ConnectorError{Kind: KindUnknown, Message: "malformed eth_accounts response", Err: err}
	}
	if len(accounts) == 0 {
		return "", NewError(KindInvalidInput, "No accounts connected")
	}
	return accounts[0], nil
}

func currentChainID(ctx context.Context, provider EvmProvider) (uint64, error) {
	raw, err := provider.Request(ctx, "eth_chainId")
	if err != nil {
		return 0, classifyProviderError(err)
	}

	var hex string
	if err := json.Unmarshal(raw, &hex); err != nil {
		return 0, &ConnectorError{Kind: KindUnknown, Message: "malformed eth_chainId response", Err: err}
	}

	id, err := strconv.ParseUint(strings.TrimPrefix(hex, "0x"), 16, 64)
	if err != nil {
		return 0, &ConnectorError{Kind: KindUnknown, Message: "malformed chain id " + hex, Err: err}
	}
	return id, nil
}

// ensureChain switches the signer to the target chain when needed and waits
// for the switch to settle. This is a required ordering step, not an
// optimization.
func ensureChain(ctx context.Context, provider EvmProvider, chain ChainConfig, settle time.Duration, log *logger.Entry) error {
	current, err := currentChainID(ctx, provider)
	if err != nil {
		return err
	}
	if current == chain.ChainID {
		return nil
	}

	chainIDHex := "0x" + strconv.FormatUint(chain.ChainID, 16)
	_, err = provider.Request(ctx, "wallet_switchEthereumChain", map[string]any{"chainId": chainIDHex})
	if err != nil {
		if IsCancelled(classifyProviderError(err)) {
			return classifyProviderError(err)
		}

		// Chain unknown to the wallet: register it, then retry.
		log.WithField("chain", chain.Name).Info("chain not registered with wallet, adding")
		_, addErr := provider.Request(ctx, "wallet_addEthereumChain", map[string]any{
			"chainId":           chainIDHex,
			"chainName":         chain.Name,
			"rpcUrls":           []string{chain.RPCURL},
			"blockExplorerUrls": []string{chain.BlockExplorer},
		})
		if addErr != nil {
			return &ConnectorError{
				Kind:    KindNetworkError,
				Message: fmt.Sprintf("Failed to switch to %s", chain.Name),
				Err:     addErr,
			}
		}
	}

	if settle > 0 {
		select {
		case <-time.After(settle):
		case <-ctx.Done():
			return &ConnectorError{Kind: KindNetworkError, Message: "network switch interrupted", Err: ctx.Err()}
		}
	}

	current, err = currentChainID(ctx, provider)
	if err != nil {
		return err
	}
	if current != chain.ChainID {
		return NewError(KindNetworkError, fmt.Sprintf("Failed to switch to %s", chain.Name))
	}
	return nil
}

// weiHex converts a display-unit amount into a 0x-prefixed wei quantity.
func weiHex(amount decimal.Decimal) string {
	wei := amount.Shift(18).BigInt()
	return "0x" + wei.Text(16)
}
