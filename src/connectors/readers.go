package connectors

import (
	"github.com/ethereum/go-ethereum/ethclient"
	logger "github.com/sirupsen/logrus"
)

// DialChainReaders opens read-only RPC clients for every configured EVM
// chain. A chain whose RPC cannot be dialed is skipped with a warning: the
// connectors degrade (no allowance short-circuit, no receipt confirmation)
// rather than refuse to run.
func DialChainReaders(registry Registry, log *logger.Entry) map[uint64]ChainReader {
	if log == nil {
		log = logger.NewEntry(logger.StandardLogger())
	}

	readers := make(map[uint64]ChainReader, len(registry.EVM))
	for _, chain := range registry.EVM {
		client, err := ethclient.Dial(chain.RPCURL)
		if err != nil {
			log.WithError(err).WithField("chain", chain.Name).Warn("failed to dial chain RPC, read path disabled")
			continue
		}
		readers[chain.ChainID] = client
	}
	return readers
}
