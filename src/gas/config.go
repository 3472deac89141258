package gas

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	// Flat mining-fee reserve kept back from every Bitcoin send.
	BTCFeeReserveSats int64 `envconfig:"BTC_FEE_RESERVE_SATS" default:"10000"`
	// Flat native-unit reserve kept back from every EVM send, enough for
	// two to three transactions.
	EVMGasReserve decimal.Decimal `envconfig:"EVM_GAS_RESERVE" default:"0.005"`
	// USD value below which a balance is treated as dust.
	DustThresholdUSD decimal.Decimal `envconfig:"DUST_THRESHOLD_USD" default:"50"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
