package strategy

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"panicpod/src/connectors"
	"panicpod/src/model"
)

var ErrNoStrategy = errors.New("no strategy configured")

// Registry holds the user's strategy in memory. Nothing is persisted; a
// restart starts clean and the strategy must be registered again.
type Registry struct {
	mu      sync.RWMutex
	current *model.PanicStrategy
}

func NewRegistry() *Registry {
	return &Registry{}
}

func (r *Registry) Get() (*model.PanicStrategy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.current == nil {
		return nil, ErrNoStrategy
	}

	copied := *r.current
	if r.current.Escape != nil {
		escape := *r.current.Escape
		copied.Escape = &escape
	}
	if r.current.Haven != nil {
		haven := *r.current.Haven
		copied.Haven = &haven
	}
	return &copied, nil
}

// Set validates and installs a new strategy. At least one mode must be
// configured, and every configured mode needs a valid BTC safe address.
func (r *Registry) Set(strat *model.PanicStrategy) error {
	if strat == nil || (strat.Escape == nil && strat.Haven == nil) {
		return errors.New("strategy must configure at least one mode")
	}

	if strat.Escape != nil {
		if err := validateAddresses(strat.Escape.BTCAddress, strat.Escape.EVMAddress); err != nil {
			return fmt.Errorf("escape config: %w", err)
		}
	}
	if strat.Haven != nil {
		if err := validateAddresses(strat.Haven.BTCAddress, strat.Haven.EVMAddress); err != nil {
			return fmt.Errorf("haven config: %w", err)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.current = strat
	return nil
}

func validateAddresses(btcAddress, evmAddress string) error {
	if btcAddress == "" {
		return errors.New("btc_address is required")
	}
	if !connectors.IsValidBitcoinAddress(btcAddress) {
		return fmt.Errorf("invalid bitcoin address: %s", btcAddress)
	}
	if evmAddress != "" && !common.IsHexAddress(evmAddress) {
		return fmt.Errorf("invalid evm address: %s", evmAddress)
	}
	return nil
}
