package marketdata

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"

	"panicpod/src/connectors"
	"panicpod/src/model"
)

const balanceOfABIJSON = `[
	{"inputs":[{"name":"account","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"}
]`

var balanceOfABI = func() abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(balanceOfABIJSON))
	if err != nil {
		panic(err)
	}
	return parsed
}()

// EVMReader is the read surface balance fetching needs per chain;
// *ethclient.Client satisfies it.
type EVMReader interface {
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

type mempoolAddressStats struct {
	ChainStats struct {
		FundedTxoSum int64 `json:"funded_txo_sum"`
		SpentTxoSum  int64 `json:"spent_txo_sum"`
	} `json:"chain_stats"`
}

// BalanceService assembles one balance snapshot per planning pass: BTC from
// the mempool.space signet API, native EVM balances per configured chain,
// and native ZETA plus ZRC20 token balances on the hub chain. Every source
// degrades to zero on failure; planning must never be blocked by one dead
// RPC.
type BalanceService struct {
	http     *resty.Client
	registry connectors.Registry
	readers  map[uint64]EVMReader
	hub      EVMReader
	log      *logger.Entry
}

func NewBalanceService(cfg Config, registry connectors.Registry, readers map[uint64]EVMReader, hub EVMReader, log *logger.Entry) *BalanceService {
	if log == nil {
		log = logger.NewEntry(logger.StandardLogger())
	}

	httpClient := resty.New().
		SetBaseURL(cfg.MempoolAPIURL).
		SetTimeout(time.Duration(cfg.HTTPTimeoutS) * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond)

	return &BalanceService{
		http:     httpClient,
		registry: registry,
		readers:  readers,
		hub:      hub,
		log:      log,
	}
}

// DialBalanceReaders opens per-chain read clients for every EVM chain plus
// the hub chain. Chains whose RPC cannot be dialed are skipped with a
// warning and report zero balances.
func DialBalanceReaders(registry connectors.Registry, log *logger.Entry) (map[uint64]EVMReader, EVMReader) {
	if log == nil {
		log = logger.NewEntry(logger.StandardLogger())
	}

	readers := make(map[uint64]EVMReader, len(registry.EVM))
	for _, chain := range registry.EVM {
		client, err := ethclient.Dial(chain.RPCURL)
		if err != nil {
			log.WithError(err).WithField("chain", chain.Name).Warn("failed to dial chain RPC, balances disabled")
			continue
		}
		readers[chain.ChainID] = client
	}

	hub, err := ethclient.Dial(registry.Zeta.RPCURL)
	if err != nil {
		log.WithError(err).Warn("failed to dial hub chain RPC, hub balances disabled")
		return readers, nil
	}
	return readers, hub
}

// Snapshot fetches every tracked balance. Empty addresses yield zero for
// their side; individual source failures are logged and zeroed.
func (s *BalanceService) Snapshot(ctx context.Context, btcAddress, evmAddress string) model.BalanceSnapshot {
	snapshot := model.BalanceSnapshot{}

	if btcAddress != "" {
		btc, err := s.bitcoinBalance(ctx, btcAddress)
		if err != nil {
			s.log.WithError(err).Warn("bitcoin balance fetch failed")
		} else {
			snapshot.BTC = btc
		}
	}

	if evmAddress == "" || !common.IsHexAddress(evmAddress) {
		return snapshot
	}
	account := common.HexToAddress(evmAddress)

	for _, chain := range s.registry.EVM {
		balance := decimal.Zero
		if reader, ok := s.readers[chain.ChainID]; ok {
			wei, err := reader.BalanceAt(ctx, account, nil)
			if err != nil {
				s.log.WithError(err).WithField("chain", chain.Name).Warn("native balance fetch failed")
			} else {
				balance = decimal.NewFromBigInt(wei, -18)
			}
		}
		snapshot.EVM = append(snapshot.EVM, model.EVMBalance{
			Chain:   chain.Key,
			Name:    chain.Name,
			Balance: balance,
		})
	}

	if s.hub == nil {
		return snapshot
	}

	zeta, err := s.hub.BalanceAt(ctx, account, nil)
	if err != nil {
		s.log.WithError(err).Warn("hub native balance fetch failed")
	} else {
		snapshot.ZetaNative = decimal.NewFromBigInt(zeta, -18)
	}

	for _, chain := range s.registry.EVM {
		if !common.IsHexAddress(chain.ZRC20) {
			continue
		}
		token := common.HexToAddress(chain.ZRC20)
		if token == (common.Address{}) {
			continue
		}

		balance, err := s.tokenBalance(ctx, token, account)
		if err != nil {
			s.log.WithError(err).WithField("chain", chain.Name).Warn("zrc20 balance fetch failed")
			continue
		}
		if balance.IsZero() {
			continue
		}
		snapshot.ZRC20 = append(snapshot.ZRC20, model.WrappedToken{
			Symbol:  fmt.Sprintf("ETH.%s", chain.Key),
			Balance: balance,
			Address: chain.ZRC20,
		})
	}

	return snapshot
}

func (s *BalanceService) bitcoinBalance(ctx context.Context, address string) (decimal.Decimal, error) {
	var stats mempoolAddressStats
	resp, err := s.http.R().
		SetContext(ctx).
		SetResult(&stats).
		Get(fmt.Sprintf("/address/%s", address))
	if err != nil {
		return decimal.Zero, fmt.Errorf("mempool request failed: %w", err)
	}
	if resp.StatusCode() != 200 {
		return decimal.Zero, fmt.Errorf("mempool HTTP %d: %s", resp.StatusCode(), resp.String())
	}

	sats := stats.ChainStats.FundedTxoSum - stats.ChainStats.SpentTxoSum
	if sats < 0 {
		sats = 0
	}
	return decimal.New(sats, -8), nil
}

func (s *BalanceService) tokenBalance(ctx context.Context, token, account common.Address) (decimal.Decimal, error) {
	data, err := balanceOfABI.Pack("balanceOf", account)
	if err != nil {
		return decimal.Zero, fmt.Errorf("encode balanceOf: %w", err)
	}

	output, err := s.hub.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("balanceOf call: %w", err)
	}

	values, err := balanceOfABI.Unpack("balanceOf", output)
	if err != nil || len(values) != 1 {
		return decimal.Zero, fmt.Errorf("decode balanceOf: %w", err)
	}
	amount, ok := values[0].(*big.Int)
	if !ok {
		return decimal.Zero, fmt.Errorf("decode balanceOf: unexpected type")
	}

	// ZRC20 tokens carry 18 decimals on the hub chain.
	return decimal.NewFromBigInt(amount, -18), nil
}
