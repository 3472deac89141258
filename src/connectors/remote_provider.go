package connectors

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

type walletRequest struct {
	Method string `json:"method"`
	Params any    `json:"params,omitempty"`
}

// remoteWallet talks JSON to a local wallet bridge that owns the actual
// keys. Timeouts are generous; most calls wait on a human approving a
// prompt.
type remoteWallet struct {
	http *resty.Client
}

func newRemoteWallet(baseURL string, timeout time.Duration) *remoteWallet {
	return &remoteWallet{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(timeout),
	}
}

func (w *remoteWallet) request(ctx context.Context, method string, params any) (json.RawMessage, error) {
	resp, err := w.http.R().
		SetContext(ctx).
		SetBody(walletRequest{Method: method, Params: params}).
		Post("/")
	if err != nil {
		return nil, fmt.Errorf("wallet bridge request failed: %w", err)
	}
	if resp.StatusCode() != 200 {
		// Bridge errors carry the wallet's own message; surface it
		// verbatim so classification can recognize rejections.
		return nil, fmt.Errorf("wallet bridge error %d: %s", resp.StatusCode(), resp.String())
	}
	return json.RawMessage(resp.Body()), nil
}

// RemoteBitcoinProvider adapts the wallet bridge to the Xverse-shaped
// request protocol.
type RemoteBitcoinProvider struct {
	wallet *remoteWallet
}

func NewRemoteBitcoinProvider(baseURL string, timeout time.Duration) *RemoteBitcoinProvider {
	return &RemoteBitcoinProvider{wallet: newRemoteWallet(baseURL, timeout)}
}

func (p *RemoteBitcoinProvider) Request(ctx context.Context, method string, params any) (json.RawMessage, error) {
	return p.wallet.request(ctx, method, params)
}

// RemoteEvmProvider adapts the wallet bridge to the EIP-1193 request shape.
type RemoteEvmProvider struct {
	wallet *remoteWallet
}

func NewRemoteEvmProvider(baseURL string, timeout time.Duration) *RemoteEvmProvider {
	return &RemoteEvmProvider{wallet: newRemoteWallet(baseURL, timeout)}
}

func (p *RemoteEvmProvider) Request(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	if len(params) == 0 {
		return p.wallet.request(ctx, method, nil)
	}
	return p.wallet.request(ctx, method, params)
}
