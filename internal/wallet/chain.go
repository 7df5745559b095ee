package wallet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"
	"time"
)

// ChainReader reads balances from the chain.
type ChainReader interface {
	Balance(ctx context.Context, address string) (*big.Int, error)
}

// RPCChainReader queries an Ethereum JSON-RPC endpoint. Balance reads are
// idempotent, so one bounded retry is permitted on transport failure.
type RPCChainReader struct {
	rpcURL string
	client *http.Client
}

func NewRPCChainReader(rpcURL string, timeout time.Duration) *RPCChainReader {
	return &RPCChainReader{
		rpcURL: rpcURL,
		client: &http.Client{Timeout: timeout},
	}
}

// Balance returns the address balance in wei.
func (r *RPCChainReader) Balance(ctx context.Context, address string) (*big.Int, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		balance, err := r.balanceOnce(ctx, address)
		if err == nil {
			return balance, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	return nil, lastErr
}

func (r *RPCChainReader) balanceOnce(ctx context.Context, address string) (*big.Int, error) {
	payload, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "eth_getBalance",
		"params":  []string{address, "latest"},
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", r.rpcURL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rpc HTTP %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	var decoded struct {
		Result string `json:"result"`
		Error  *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("decoding rpc response: %w", err)
	}
	if decoded.Error != nil {
		return nil, fmt.Errorf("rpc error %d: %s", decoded.Error.Code, decoded.Error.Message)
	}

	hexVal := strings.TrimPrefix(decoded.Result, "0x")
	if hexVal == "" {
		return nil, fmt.Errorf("empty balance result")
	}
	balance, ok := new(big.Int).SetString(hexVal, 16)
	if !ok {
		return nil, fmt.Errorf("malformed balance %q", decoded.Result)
	}
	return balance, nil
}
