package marketdata

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	MempoolAPIURL   string `envconfig:"MEMPOOL_API_URL" default:"https://mempool.space/signet/api"`
	CoinGeckoAPIURL string `envconfig:"COINGECKO_API_URL" default:"https://api.coingecko.com/api/v3"`
	PriceCacheTTLS  int    `envconfig:"PRICE_CACHE_TTL_SECONDS" default:"60"`
	HTTPTimeoutS    int    `envconfig:"MARKETDATA_HTTP_TIMEOUT_SECONDS" default:"15"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
