package connectors

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcutil"
	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"

	"panicpod/src/gas"
)

// taprootAddress matches witness v1 (bech32m) addresses, which predate the
// decoder in btcutil; mainnet bc1p and testnet/signet tb1p forms.
var taprootAddress = regexp.MustCompile(`^(bc1p|tb1p)[ac-hj-np-z02-9]{25,90}$`)

// BitcoinConnector sends native BTC through an Xverse-shaped wallet
// provider.
type BitcoinConnector struct {
	provider BitcoinProvider
	policy   gas.Policy
	log      *logger.Entry
}

func NewBitcoinConnector(provider BitcoinProvider, policy gas.Policy, log *logger.Entry) *BitcoinConnector {
	if log == nil {
		log = logger.NewEntry(logger.StandardLogger())
	}
	return &BitcoinConnector{provider: provider, policy: policy, log: log}
}

type btcRecipient struct {
	Address string `json:"address"`
	Amount  int64  `json:"amount"`
}

type btcSendTransferParams struct {
	Recipients []btcRecipient `json:"recipients"`
}

type btcSendTransferResponse struct {
	Txid   string `json:"txid"`
	Result *struct {
		Txid string `json:"txid"`
	} `json:"result"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *BitcoinConnector) ExecuteAction(ctx context.Context, action Action) (*Result, error) {
	if action.Kind != ActionTransfer {
		return nil, NewError(KindInvalidInput, fmt.Sprintf("bitcoin connector does not support action %q", action.Kind))
	}

	if !IsValidBitcoinAddress(action.Destination) {
		return nil, NewError(KindInvalidInput, "Invalid Bitcoin address format")
	}

	maxSendable := c.policy.MaxSendable(action.Amount, gas.ChainBTC)
	if maxSendable.LessThanOrEqual(decimal.Zero) {
		return nil, NewError(
			KindInsufficientFunds,
			fmt.Sprintf("Insufficient balance to cover fees. Need at least %s BTC for fees.", c.policy.Reserve(gas.ChainBTC)),
		)
	}

	amountSats := maxSendable.Shift(8).IntPart()
	if amountSats <= 0 {
		return nil, NewError(KindInvalidInput, "Invalid amount: must be greater than 0")
	}

	c.log.WithFields(logger.Fields{
		"destination": action.Destination,
		"amount_sats": amountSats,
	}).Info("requesting BTC transfer from wallet")

	raw, err := c.provider.Request(ctx, "sendTransfer", btcSendTransferParams{
		Recipients: []btcRecipient{{Address: action.Destination, Amount: amountSats}},
	})
	if err != nil {
		return nil, classifyProviderError(err)
	}

	var response btcSendTransferResponse
	if err := json.Unmarshal(raw, &response); err != nil {
		return nil, &ConnectorError{Kind: KindUnknown, Message: "malformed wallet response", Err: err}
	}

	if response.Error != nil {
		if response.Error.Message != "" {
			return nil, classifyProviderError(fmt.Errorf("%s", response.Error.Message))
		}
		return nil, NewError(KindUnknown, "Transaction rejected")
	}

	txid := response.Txid
	if txid == "" && response.Result != nil {
		txid = response.Result.Txid
	}
	if txid == "" {
		return nil, NewError(KindUnknown, "No transaction ID returned from wallet")
	}

	return &Result{TxHash: txid}, nil
}

// IsValidBitcoinAddress accepts legacy, P2SH, native segwit and taproot
// forms on mainnet, testnet and signet.
func IsValidBitcoinAddress(address string) bool {
	if address == "" {
		return false
	}

	if _, err := btcutil.DecodeAddress(address, &chaincfg.MainNetParams); err == nil {
		return true
	}
	if _, err := btcutil.DecodeAddress(address, &chaincfg.TestNet3Params); err == nil {
		return true
	}

	return taprootAddress.MatchString(address)
}
