package estimation

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

const podSwapABIJSON = `[
	{"inputs":[{"name":"inputToken","type":"address"},{"name":"inputAmount","type":"uint256"}],"name":"estimateEvacuation","outputs":[{"name":"btcAmount","type":"uint256"},{"name":"gasFee","type":"uint256"},{"name":"netAmount","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"inputs":[],"name":"getZBTC","outputs":[{"name":"","type":"address"}],"stateMutability":"view","type":"function"}
]`

var podSwapABI = func() abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(podSwapABIJSON))
	if err != nil {
		panic(err)
	}
	return parsed
}()

// SwapQuote is the PodSwap contract's evacuation estimate; all amounts are
// in satoshis.
type SwapQuote struct {
	BTCAmount *big.Int
	GasFee    *big.Int
	NetAmount *big.Int
}

// Quoter estimates the BTC output of swapping a ZRC20 amount through the
// hub chain.
type Quoter interface {
	EstimateSwapToBTC(ctx context.Context, token common.Address, amountWei *big.Int) (*SwapQuote, error)
}

// ContractCaller is the single read call the quoter needs;
// *ethclient.Client satisfies it.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// ContractQuoter calls the PodSwap contract's estimateEvacuation view on
// the hub chain.
type ContractQuoter struct {
	caller   ContractCaller
	contract common.Address
}

func NewContractQuoter(caller ContractCaller, contract common.Address) *ContractQuoter {
	return &ContractQuoter{caller: caller, contract: contract}
}

// DialContractQuoter connects a quoter to the hub chain RPC.
func DialContractQuoter(rpcURL, contractAddress string) (*ContractQuoter, error) {
	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial hub chain rpc: %w", err)
	}
	return NewContractQuoter(client, common.HexToAddress(contractAddress)), nil
}

func (q *ContractQuoter) EstimateSwapToBTC(ctx context.Context, token common.Address, amountWei *big.Int) (*SwapQuote, error) {
	data, err := podSwapABI.Pack("estimateEvacuation", token, amountWei)
	if err != nil {
		return nil, fmt.Errorf("encode estimateEvacuation: %w", err)
	}

	output, err := q.caller.CallContract(ctx, ethereum.CallMsg{To: &q.contract, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("estimateEvacuation call: %w", err)
	}

	values, err := podSwapABI.Unpack("estimateEvacuation", output)
	if err != nil || len(values) != 3 {
		return nil, fmt.Errorf("decode estimateEvacuation: %w", err)
	}

	quote := &SwapQuote{}
	var ok bool
	if quote.BTCAmount, ok = values[0].(*big.Int); !ok {
		return nil, fmt.Errorf("decode estimateEvacuation: unexpected btcAmount type")
	}
	if quote.GasFee, ok = values[1].(*big.Int); !ok {
		return nil, fmt.Errorf("decode estimateEvacuation: unexpected gasFee type")
	}
	if quote.NetAmount, ok = values[2].(*big.Int); !ok {
		return nil, fmt.Errorf("decode estimateEvacuation: unexpected netAmount type")
	}
	return quote, nil
}

// ZBTCAddress returns the ZRC20-BTC token address the contract settles
// into.
func (q *ContractQuoter) ZBTCAddress(ctx context.Context) (common.Address, error) {
	data, err := podSwapABI.Pack("getZBTC")
	if err != nil {
		return common.Address{}, fmt.Errorf("encode getZBTC: %w", err)
	}

	output, err := q.caller.CallContract(ctx, ethereum.CallMsg{To: &q.contract, Data: data}, nil)
	if err != nil {
		return common.Address{}, fmt.Errorf("getZBTC call: %w", err)
	}

	values, err := podSwapABI.Unpack("getZBTC", output)
	if err != nil || len(values) != 1 {
		return common.Address{}, fmt.Errorf("decode getZBTC: %w", err)
	}

	address, ok := values[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("decode getZBTC: unexpected type")
	}
	return address, nil
}
