package connectors

import (
	"fmt"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

// ChainConfig describes one EVM chain the engine can send on. Contract
// addresses are configuration, not logic; placeholder (zero) addresses
// disable the corresponding feature rather than failing planning.
type ChainConfig struct {
	Key           string
	Name          string
	ChainID       uint64
	RPCURL        string
	BlockExplorer string
	Gateway       string
	ZRC20         string
}

type Config struct {
	SepoliaRPC      string `envconfig:"SEPOLIA_RPC_URL" default:"https://rpc.sepolia.org"`
	SepoliaGateway  string `envconfig:"SEPOLIA_GATEWAY_ADDRESS" default:"0x0c487a766110c85d301d96e33579c5b317fa4995"`
	SepoliaZRC20    string `envconfig:"SEPOLIA_ZRC20_ADDRESS" default:"0x05BA149A7bd6dC1F937fA9046A9e05C05f3b18b0"`
	BaseRPC         string `envconfig:"BASE_RPC_URL" default:"https://sepolia.base.org"`
	BaseGateway     string `envconfig:"BASE_GATEWAY_ADDRESS" default:"0x0c487a766110c85d301d96e33579c5b317fa4995"`
	BaseZRC20       string `envconfig:"BASE_ZRC20_ADDRESS" default:"0x236b0DE675cC8F46AE186897fCCeFe3370C9eDeD"`
	LineaRPC        string `envconfig:"LINEA_RPC_URL" default:"https://rpc.sepolia.linea.build"`
	LineaGateway    string `envconfig:"LINEA_GATEWAY_ADDRESS" default:""`
	LineaZRC20      string `envconfig:"LINEA_ZRC20_ADDRESS" default:""`
	ZetaRPC         string `envconfig:"ZETA_RPC_URL" default:"https://zetachain-athens-evm.blockpi.network/v1/rpc/public"`
	ZetaAPI         string `envconfig:"ZETA_API_URL" default:"https://zetachain-athens.blockpi.network/lcd/v1/public"`
	PodSwapAddress  string `envconfig:"POD_SWAP_ADDRESS" default:"0x3Dacd9EF40B405eDFa9C4FBaA7c846DE40bc3c66"`
	SwitchSettleMS  int    `envconfig:"CHAIN_SWITCH_SETTLE_MS" default:"1000"`
	ReceiptAttempts int    `envconfig:"RECEIPT_POLL_ATTEMPTS" default:"30"`
	ReceiptPollMS   int    `envconfig:"RECEIPT_POLL_MS" default:"4000"`

	BitcoinWalletURL string `envconfig:"WALLET_BITCOIN_URL" default:"http://localhost:9899/wallet/bitcoin"`
	EvmWalletURL     string `envconfig:"WALLET_EVM_URL" default:"http://localhost:9899/wallet/evm"`
	WalletTimeoutS   int    `envconfig:"WALLET_TIMEOUT_SECONDS" default:"120"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}

// Registry is the declared, ordered set of EVM chains plus the hub chain.
type Registry struct {
	EVM  []ChainConfig
	Zeta ChainConfig

	PodSwapAddress string
	ZetaAPI        string
}

// NewRegistry binds the environment configuration to the fixed testnet
// topology: Sepolia, Base Sepolia and Linea Sepolia settling through
// ZetaChain Athens.
func NewRegistry(cfg Config) Registry {
	return Registry{
		EVM: []ChainConfig{
			{
				Key:           "sepolia",
				Name:          "Sepolia",
				ChainID:       11155111,
				RPCURL:        cfg.SepoliaRPC,
				BlockExplorer: "https://sepolia.etherscan.io",
				Gateway:       cfg.SepoliaGateway,
				ZRC20:         cfg.SepoliaZRC20,
			},
			{
				Key:           "base",
				Name:          "Base Sepolia",
				ChainID:       84532,
				RPCURL:        cfg.BaseRPC,
				BlockExplorer: "https://sepolia.basescan.org",
				Gateway:       cfg.BaseGateway,
				ZRC20:         cfg.BaseZRC20,
			},
			{
				Key:           "linea",
				Name:          "Linea Sepolia",
				ChainID:       59141,
				RPCURL:        cfg.LineaRPC,
				BlockExplorer: "https://sepolia.lineascan.build",
				Gateway:       cfg.LineaGateway,
				ZRC20:         cfg.LineaZRC20,
			},
		},
		Zeta: ChainConfig{
			Key:           "zeta",
			Name:          "ZetaChain Testnet",
			ChainID:       7001,
			RPCURL:        cfg.ZetaRPC,
			BlockExplorer: "https://athens.explorer.zetachain.com",
		},
		PodSwapAddress: cfg.PodSwapAddress,
		ZetaAPI:        cfg.ZetaAPI,
	}
}

// ChainByName resolves a chain by display name or key, case-insensitively.
func (r Registry) ChainByName(name string) (ChainConfig, bool) {
	for _, chain := range r.EVM {
		if strings.EqualFold(chain.Name, name) || strings.EqualFold(chain.Key, name) {
			return chain, true
		}
	}
	if strings.EqualFold(r.Zeta.Name, name) || strings.EqualFold(r.Zeta.Key, name) {
		return r.Zeta, true
	}
	return ChainConfig{}, false
}

// ChainByID resolves a chain by its numeric chain id.
func (r Registry) ChainByID(chainID uint64) (ChainConfig, bool) {
	for _, chain := range r.EVM {
		if chain.ChainID == chainID {
			return chain, true
		}
	}
	if r.Zeta.ChainID == chainID {
		return r.Zeta, true
	}
	return ChainConfig{}, false
}
