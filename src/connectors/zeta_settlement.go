package connectors

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	logger "github.com/sirupsen/logrus"
)

// CCTXChecker queries ZetaChain's crosschain module for the cross-chain
// transaction spawned by a gateway deposit. Settlement means the outbound
// leg has been mined.
type CCTXChecker struct {
	http *resty.Client
	log  *logger.Entry
}

func NewCCTXChecker(apiURL string, log *logger.Entry) *CCTXChecker {
	if log == nil {
		log = logger.NewEntry(logger.StandardLogger())
	}
	return &CCTXChecker{
		http: resty.New().
			SetBaseURL(strings.TrimRight(apiURL, "/")).
			SetTimeout(15 * time.Second),
		log: log,
	}
}

type cctxResponse struct {
	CrossChainTxs []struct {
		CctxStatus struct {
			Status string `json:"status"`
		} `json:"cctx_status"`
	} `json:"CrossChainTxs"`
}

func (c *CCTXChecker) Settled(ctx context.Context, depositTxHash string) (bool, error) {
	var response cctxResponse

	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&response).
		Get("/zeta-chain/crosschain/inTxHashToCctxData/" + depositTxHash)
	if err != nil {
		return false, fmt.Errorf("cctx query failed: %w", err)
	}
	if resp.IsError() {
		// 404 means the deposit has not been observed yet, not a failure.
		if resp.StatusCode() == 404 {
			return false, nil
		}
		return false, fmt.Errorf("cctx query non-2xx status: %d", resp.StatusCode())
	}

	for _, cctx := range response.CrossChainTxs {
		if cctx.CctxStatus.Status == "OutboundMined" {
			return true, nil
		}
		if cctx.CctxStatus.Status == "Aborted" || cctx.CctxStatus.Status == "Reverted" {
			return false, fmt.Errorf("cross-chain transaction %s", strings.ToLower(cctx.CctxStatus.Status))
		}
	}

	return false, nil
}
