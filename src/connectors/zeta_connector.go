package connectors

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/core/types"
	logger "github.com/sirupsen/logrus"
)

const erc20ABIJSON = `[
	{"inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"name":"approve","outputs":[{"name":"","type":"bool"}],"stateMutability":"nonpayable","type":"function"},
	{"inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"name":"allowance","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"}
]`

const gatewayABIJSON = `[
	{"inputs":[{"name":"receiver","type":"address"},{"name":"amount","type":"uint256"},{"name":"asset","type":"address"},{"name":"message","type":"bytes"}],"name":"depositAndCall","outputs":[],"stateMutability":"nonpayable","type":"function"}
]`

var (
	erc20ABI   = mustParseABI(erc20ABIJSON)
	gatewayABI = mustParseABI(gatewayABIJSON)

	// messageArgs encodes the BTC destination the PodSwap contract reads
	// out of the gateway call: abi.encode(string).
	messageArgs = mustStringArgs()
)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(err)
	}
	return parsed
}

func mustStringArgs() abi.Arguments {
	stringType, err := abi.NewType("string", "", nil)
	if err != nil {
		panic(err)
	}
	return abi.Arguments{{Type: stringType}}
}

// ChainReader is the read-only RPC surface the swap connector needs:
// allowance checks, receipt polling. *ethclient.Client satisfies it.
type ChainReader interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// SettlementChecker reports whether a gateway deposit has settled on
// ZetaChain.
type SettlementChecker interface {
	Settled(ctx context.Context, depositTxHash string) (bool, error)
}

// ZetaConnector performs the cross-chain swap as three strictly sequential
// phases: approve the gateway, depositAndCall with the encoded BTC
// destination, then monitor settlement. A failed phase aborts the remaining
// phases for that asset-chain pair only.
type ZetaConnector struct {
	provider   EvmProvider
	readers    map[uint64]ChainReader
	settlement SettlementChecker
	registry   Registry
	log        *logger.Entry

	settleDelay        time.Duration
	receiptAttempts    int
	receiptInterval    time.Duration
	settlementAttempts int
}

func NewZetaConnector(
	provider EvmProvider,
	readers map[uint64]ChainReader,
	settlement SettlementChecker,
	registry Registry,
	log *logger.Entry,
) *ZetaConnector {
	if log == nil {
		log = logger.NewEntry(logger.StandardLogger())
	}
	cfg := GetConfig()
	return &ZetaConnector{
		provider:           provider,
		readers:            readers,
		settlement:         settlement,
		registry:           registry,
		log:                log,
		settleDelay:        time.Duration(cfg.SwitchSettleMS) * time.Millisecond,
		receiptAttempts:    cfg.ReceiptAttempts,
		receiptInterval:    time.Duration(cfg.ReceiptPollMS) * time.Millisecond,
		settlementAttempts: cfg.ReceiptAttempts,
	}
}

func (c *ZetaConnector) ExecuteAction(ctx context.Context, action Action) (*Result, error) {
	chain, ok := c.registry.ChainByName(action.Chain)
	if !ok && action.ChainID != 0 {
		chain, ok = c.registry.ChainByID(action.ChainID)
	}
	if !ok {
		return nil, NewError(KindInvalidInput, fmt.Sprintf("Unsupported chain: %s", action.Chain))
	}

	switch action.Kind {
	case ActionApprove:
		return c.approve(ctx, chain, action)
	case ActionDeposit:
		return c.deposit(ctx, chain, action)
	case ActionMonitor:
		return c.monitor(ctx, chain, action)
	default:
		return nil, NewError(KindInvalidInput, fmt.Sprintf("zeta connector does not support action %q", action.Kind))
	}
}

func (c *ZetaConnector) contracts(chain ChainConfig) (gateway, zrc20 common.Address, err error) {
	missing := NewError(
		KindInvalidInput,
		fmt.Sprintf("Missing contract addresses for chain %d", chain.ChainID),
	)

	if !common.IsHexAddress(chain.Gateway) || !common.IsHexAddress(chain.ZRC20) {
		return common.Address{}, common.Address{}, missing
	}

	gateway = common.HexToAddress(chain.Gateway)
	zrc20 = common.HexToAddress(chain.ZRC20)
	// The zero address is the configured-placeholder convention.
	if gateway == (common.Address{}) || zrc20 == (common.Address{}) {
		return common.Address{}, common.Address{}, missing
	}
	return gateway, zrc20, nil
}

// approve checks the current allowance and skips the transaction when it is
// already sufficient; otherwise it approves an unlimited amount so future
// evacuations need no further approval.
func (c *ZetaConnector) approve(ctx context.Context, chain ChainConfig, action Action) (*Result, error) {
	gateway, zrc20, err := c.contracts(chain)
	if err != nil {
		return nil, err
	}

	if err := ensureChain(ctx, c.provider, chain, c.settleDelay, c.log); err != nil {
		return nil, err
	}

	owner, err := connectedAccount(ctx, c.provider)
	if err != nil {
		return nil, err
	}

	amountWei := action.Amount.Shift(18).BigInt()

	allowance, err := c.allowance(ctx, chain, zrc20, common.HexToAddress(owner), gateway)
	if err != nil {
		return nil, err
	}
	if allowance != nil && allowance.Cmp(amountWei) >= 0 {
		c.log.WithField("chain", chain.Name).Info("gateway allowance already sufficient, skipping approval")
		return &Result{Warning: "Approval already sufficient"}, nil
	}

	data, err := erc20ABI.Pack("approve", gateway, math.MaxBig256)
	if err != nil {
		return nil, &ConnectorError{Kind: KindUnknown, Message: "approve encoding failed", Err: err}
	}

	txHash, err := sendTransaction(ctx, c.provider, txParams{
		From: owner,
		To:   zrc20.Hex(),
		Data: hexutil.Encode(data),
	})
	if err != nil {
		return nil, err
	}

	if err := c.waitMined(ctx, chain, txHash); err != nil {
		return nil, err
	}
	return &Result{TxHash: txHash}, nil
}

// deposit transfers the tokens into the gateway with the BTC destination
// encoded into the call message for the PodSwap contract.
func (c *ZetaConnector) deposit(ctx context.Context, chain ChainConfig, action Action) (*Result, error) {
	gateway, zrc20, err := c.contracts(chain)
	if err != nil {
		return nil, err
	}

	if action.BTCDestination == "" {
		return nil, NewError(KindInvalidInput, "No destination address provided")
	}

	if err := ensureChain(ctx, c.provider, chain, c.settleDelay, c.log); err != nil {
		return nil, err
	}

	from, err := connectedAccount(ctx, c.provider)
	if err != nil {
		return nil, err
	}

	message, err := messageArgs.Pack(action.BTCDestination)
	if err != nil {
		return nil, &ConnectorError{Kind: KindUnknown, Message: "message encoding failed", Err: err}
	}

	amountWei := action.Amount.Shift(18).BigInt()
	data, err := gatewayABI.Pack(
		"depositAndCall",
		common.HexToAddress(c.registry.PodSwapAddress),
		amountWei,
		zrc20,
		message,
	)
	if err != nil {
		return nil, &ConnectorError{Kind: KindUnknown, Message: "depositAndCall encoding failed", Err: err}
	}

	c.log.WithFields(logger.Fields{
		"chain":           chain.Name,
		"btc_destination": action.BTCDestination,
		"amount":          action.Amount.String(),
	}).Info("depositing to ZetaChain gateway")

	txHash, err := sendTransaction(ctx, c.provider, txParams{
		From: from,
		To:   gateway.Hex(),
		Data: hexutil.Encode(data),
	})
	if err != nil {
		return nil, err
	}

	if err := c.waitMined(ctx, chain, txHash); err != nil {
		return nil, err
	}
	return &Result{TxHash: txHash}, nil
}

// monitor confirms the deposit receipt on the source chain, then polls
// ZetaChain for swap settlement within a bounded window. When the window
// expires the phase succeeds provisionally with an explicit warning instead
// of claiming settlement it has not observed.
func (c *ZetaConnector) monitor(ctx context.Context, chain ChainConfig, action Action) (*Result, error) {
	if action.DepositTxHash == "" {
		return nil, NewError(KindInvalidInput, "no deposit transaction to monitor")
	}

	if err := c.waitMined(ctx, chain, action.DepositTxHash); err != nil {
		return nil, err
	}

	if c.settlement == nil {
		return &Result{
			TxHash:  action.DepositTxHash,
			Warning: "ZetaChain settlement not yet confirmed",
		}, nil
	}

	for attempt := 0; attempt < c.settlementAttempts; attempt++ {
		settled, err := c.settlement.Settled(ctx, action.DepositTxHash)
		if err != nil {
			c.log.WithError(err).Warn("settlement query failed, retrying")
		} else if settled {
			return &Result{TxHash: action.DepositTxHash}, nil
		}

		select {
		case <-time.After(c.receiptInterval):
		case <-ctx.Done():
			return nil, &ConnectorError{Kind: KindNetworkError, Message: "settlement monitoring interrupted", Err: ctx.Err()}
		}
	}

	return &Result{
		TxHash:  action.DepositTxHash,
		Warning: "ZetaChain settlement not yet confirmed",
	}, nil
}

func (c *ZetaConnector) allowance(ctx context.Context, chain ChainConfig, token, owner, spender common.Address) (*big.Int, error) {
	reader, ok := c.readers[chain.ChainID]
	if !ok {
		// No read path configured: fall through to an explicit approval.
		return nil, nil
	}

	data, err := erc20ABI.Pack("allowance", owner, spender)
	if err != nil {
		return nil, &ConnectorError{Kind: KindUnknown, Message: "allowance encoding failed", Err: err}
	}

	output, err := reader.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, nil)
	if err != nil {
		return nil, &ConnectorError{Kind: KindNetworkError, Message: "allowance query failed", Err: err}
	}

	values, err := erc20ABI.Unpack("allowance", output)
	if err != nil || len(values) != 1 {
		return nil, &ConnectorError{Kind: KindUnknown, Message: "malformed allowance response", Err: err}
	}

	allowance, ok := values[0].(*big.Int)
	if !ok {
		return nil, NewError(KindUnknown, "malformed allowance response")
	}
	return allowance, nil
}

// waitMined polls for the transaction receipt until it lands or the attempt
// budget runs out. A missing reader skips confirmation rather than failing
// the phase.
func (c *ZetaConnector) waitMined(ctx context.Context, chain ChainConfig, txHash string) error {
	reader, ok := c.readers[chain.ChainID]
	if !ok {
		return nil
	}

	hash := common.HexToHash(txHash)
	for attempt := 0; attempt < c.receiptAttempts; attempt++ {
		receipt, err := reader.TransactionReceipt(ctx, hash)
		if err == nil && receipt != nil {
			if receipt.Status != types.ReceiptStatusSuccessful {
				return NewError(KindUnknown, "Transaction confirmation failed")
			}
			return nil
		}
		if err != nil && !errors.Is(err, ethereum.NotFound) {
			c.log.WithError(err).Warn("receipt query failed, retrying")
		}

		select {
		case <-time.After(c.receiptInterval):
		case <-ctx.Done():
			return &ConnectorError{Kind: KindNetworkError, Message: "confirmation interrupted", Err: ctx.Err()}
		}
	}

	return NewError(KindNetworkError, "transaction not confirmed in time")
}
