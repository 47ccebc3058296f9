package solana

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/WorstGen/land-marketplace/internal/core/domain"
)

const (
	methodGetBalance              = "getBalance"
	methodGetSignatureStatuses    = "getSignatureStatuses"
	methodRequestAirdrop          = "requestAirdrop"
	methodGetSignaturesForAddress = "getSignaturesForAddress"
	methodGetTransaction          = "getTransaction"

	lamportsExp = -9
)

var ErrRPCFailed = errors.New("solana: RPC call failed")

type Config struct {
	Endpoint          string
	Commitment        string
	Timeout           time.Duration
	RequestsPerSecond float64
}

// Client talks to a Solana cluster over JSON-RPC 2.0.
type Client struct {
	endpoint   string
	commitment string
	http       *http.Client
	limiter    *rate.Limiter
}

func NewClient(cfg Config) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("%w: solana rpc endpoint is required", domain.ErrInvalidConfig)
	}

	if cfg.Commitment == "" {
		cfg.Commitment = "confirmed"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	c := &Client{
		endpoint:   cfg.Endpoint,
		commitment: cfg.Commitment,
		http:       &http.Client{Timeout: cfg.Timeout},
	}

	if cfg.RequestsPerSecond > 0 {
		burst := int(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	return c, nil
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int           `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) call(ctx context.Context, method string, out interface{}, params ...interface{}) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	body, err := json.Marshal(rpcRequest{JSONRPC: "2.0", ID: 1, Method: method, Params: params})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrRPCFailed, method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s: http status %d", ErrRPCFailed, method, resp.StatusCode)
	}

	var rpcResp rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return fmt.Errorf("%w: %s: decode response: %v", ErrRPCFailed, method, err)
	}

	if rpcResp.Error != nil {
		return fmt.Errorf("%w: %s: %d %s", ErrRPCFailed, method, rpcResp.Error.Code, rpcResp.Error.Message)
	}

	if out == nil {
		return nil
	}

	return json.Unmarshal(rpcResp.Result, out)
}

func (c *Client) GetBalance(ctx context.Context, address string) (decimal.Decimal, error) {
	var res struct {
		Value int64 `json:"value"`
	}

	if err := c.call(ctx, methodGetBalance, &res, address, map[string]string{"commitment": c.commitment}); err != nil {
		return decimal.Zero, err
	}

	return lamportsToSOL(res.Value), nil
}

// ConfirmTransaction reports whether the signature reached confirmed or
// finalized status without an execution error.
func (c *Client) ConfirmTransaction(ctx context.Context, signature string) (bool, error) {
	var res struct {
		Value []*struct {
			ConfirmationStatus string          `json:"confirmationStatus"`
			Err                json.RawMessage `json:"err"`
		} `json:"value"`
	}

	opts := map[string]bool{"searchTransactionHistory": true}
	if err := c.call(ctx, methodGetSignatureStatuses, &res, []string{signature}, opts); err != nil {
		return false, err
	}

	if len(res.Value) == 0 || res.Value[0] == nil {
		return false, nil
	}

	st := res.Value[0]
	if !isNull(st.Err) {
		return false, nil
	}

	return st.ConfirmationStatus == "confirmed" || st.ConfirmationStatus == "finalized", nil
}

func (c *Client) RequestAirdrop(ctx context.Context, address string, amount decimal.Decimal) (string, error) {
	lamports := amount.Shift(-lamportsExp).IntPart()
	if lamports <= 0 {
		return "", fmt.Errorf("%w: airdrop amount must be positive", domain.ErrInvalidRequest)
	}

	var sig string
	if err := c.call(ctx, methodRequestAirdrop, &sig, address, lamports); err != nil {
		return "", err
	}

	return sig, nil
}

type signatureInfo struct {
	Signature string          `json:"signature"`
	Err       json.RawMessage `json:"err"`
	BlockTime *int64          `json:"blockTime"`
}

type tokenBalance struct {
	AccountIndex  int    `json:"accountIndex"`
	Mint          string `json:"mint"`
	Owner         string `json:"owner"`
	UITokenAmount struct {
		UIAmountString string `json:"uiAmountString"`
	} `json:"uiTokenAmount"`
}

type transaction struct {
	BlockTime *int64 `json:"blockTime"`
	Meta      *struct {
		Err               json.RawMessage `json:"err"`
		PreBalances       []int64         `json:"preBalances"`
		PostBalances      []int64         `json:"postBalances"`
		PreTokenBalances  []tokenBalance  `json:"preTokenBalances"`
		PostTokenBalances []tokenBalance  `json:"postTokenBalances"`
	} `json:"meta"`
	Transaction struct {
		Message struct {
			AccountKeys []string `json:"accountKeys"`
		} `json:"message"`
	} `json:"transaction"`
}

// RecentTransfers returns the latest transfers into address, newest first.
func (c *Client) RecentTransfers(ctx context.Context, address string, limit int) ([]domain.Transfer, error) {
	var sigs []signatureInfo
	opts := map[string]interface{}{"limit": limit, "commitment": c.commitment}
	if err := c.call(ctx, methodGetSignaturesForAddress, &sigs, address, opts); err != nil {
		return nil, err
	}

	transfers := make([]domain.Transfer, 0, len(sigs))
	for _, s := range sigs {
		if !isNull(s.Err) {
			transfers = append(transfers, domain.Transfer{Signature: s.Signature, Failed: true})
			continue
		}

		t, err := c.GetTransfer(ctx, s.Signature, address)
		if err != nil {
			return nil, err
		}

		// not yet visible at this commitment
		if t == nil {
			continue
		}

		transfers = append(transfers, *t)
	}

	return transfers, nil
}

// GetTransfer fetches one transaction and reads it as a transfer into
// address. It returns nil if the node does not have it at this commitment.
func (c *Client) GetTransfer(ctx context.Context, signature, address string) (*domain.Transfer, error) {
	var tx *transaction
	txOpts := map[string]interface{}{
		"encoding":                       "json",
		"commitment":                     c.commitment,
		"maxSupportedTransactionVersion": 0,
	}
	if err := c.call(ctx, methodGetTransaction, &tx, signature, txOpts); err != nil {
		return nil, err
	}

	if tx == nil || tx.Meta == nil {
		return nil, nil
	}

	t := toTransfer(signature, address, tx)
	return &t, nil
}

func toTransfer(signature, address string, tx *transaction) domain.Transfer {
	t := domain.Transfer{
		Signature: signature,
		Failed:    !isNull(tx.Meta.Err),
	}

	if tx.BlockTime != nil {
		bt := time.Unix(*tx.BlockTime, 0).UTC()
		t.BlockTime = &bt
	}

	keys := tx.Transaction.Message.AccountKeys
	if len(keys) > 0 {
		t.Sender = keys[0]
	}

	for i, k := range keys {
		if k != address || i >= len(tx.Meta.PreBalances) || i >= len(tx.Meta.PostBalances) {
			continue
		}
		if delta := tx.Meta.PostBalances[i] - tx.Meta.PreBalances[i]; delta > 0 {
			t.SOLAmount = lamportsToSOL(delta)
		}
	}

	for _, post := range tx.Meta.PostTokenBalances {
		if post.Owner != address {
			continue
		}

		after, err := decimal.NewFromString(post.UITokenAmount.UIAmountString)
		if err != nil {
			continue
		}

		before := decimal.Zero
		for _, pre := range tx.Meta.PreTokenBalances {
			if pre.AccountIndex == post.AccountIndex {
				if v, err := decimal.NewFromString(pre.UITokenAmount.UIAmountString); err == nil {
					before = v
				}
			}
		}

		if delta := after.Sub(before); delta.IsPositive() {
			t.TokenMint = post.Mint
			t.TokenAmount = delta
		}
	}

	return t
}

func lamportsToSOL(lamports int64) decimal.Decimal {
	return decimal.New(lamports, lamportsExp)
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}
