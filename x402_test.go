package x402

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ultravioletadao/x402-go/facilitator"
	"github.com/ultravioletadao/x402-go/logger"
	"github.com/ultravioletadao/x402-go/networks"
	"github.com/ultravioletadao/x402-go/types"
	"github.com/ultravioletadao/x402-go/verification"
)

const (
	evmPayTo    = "0x209693Bc6afc0C5328bA36FaF03C514EF312287C"
	solanaPayTo = "9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM"
)

type fakeFacilitator struct {
	mu       sync.Mutex
	verify   func(types.PaymentRequirements) (*types.VerifyResponse, error)
	settle   func(types.PaymentRequirements) (*types.SettleResponse, error)
	verified []types.PaymentRequirements
	settled  int
}

func (f *fakeFacilitator) Verify(ctx context.Context, p types.PaymentPayload, r types.PaymentRequirements) (*types.VerifyResponse, error) {
	f.mu.Lock()
	f.verified = append(f.verified, r)
	f.mu.Unlock()
	if f.verify != nil {
		return f.verify(r)
	}
	return &types.VerifyResponse{IsValid: true, Payer: "0xpayer"}, nil
}

func (f *fakeFacilitator) Settle(ctx context.Context, p types.PaymentPayload, r types.PaymentRequirements) (*types.SettleResponse, error) {
	f.mu.Lock()
	f.settled++
	f.mu.Unlock()
	if f.settle != nil {
		return f.settle(r)
	}
	return &types.SettleResponse{Success: true, Transaction: "0xtx", Network: r.Network}, nil
}

func (f *fakeFacilitator) Supported(ctx context.Context) (*types.SupportedResponse, error) {
	return &types.SupportedResponse{}, nil
}

func newTestX402(t *testing.T, f facilitator.Interface, opts ...Option) *X402 {
	t.Helper()
	reg, err := networks.NewDefaultRegistry()
	require.NoError(t, err)

	base := []Option{
		WithPayTo(types.ChainEVM, evmPayTo),
		WithPayTo(types.ChainSVM, solanaPayTo),
		WithPrice(decimal.RequireFromString("5.00")),
		WithResource("https://api.example.com/premium", "Premium API", ""),
	}
	x, err := New(reg, f, append(base, opts...)...)
	require.NoError(t, err)
	return x
}

func mustPayload(t *testing.T, network string, body string) *types.PaymentPayload {
	t.Helper()
	return &types.PaymentPayload{X402Version: 1, Scheme: "exact", Network: types.Network(network), Payload: json.RawMessage(body)}
}

func TestProcessPayment_Settled(t *testing.T) {
	f := &fakeFacilitator{}
	x := newTestX402(t, f)

	res, err := x.ProcessPayment(context.Background(), mustPayload(t, "base",
		`{"token":{"address":"0x60a3E35Cc302bFA44Cb288Bc5a4F316Fdb1adb42","symbol":"EURC","eip712":{"name":"EURC","version":"2"}}}`))
	require.NoError(t, err)

	assert.True(t, res.Success())
	assert.Equal(t, types.StatusSettled, res.Status)
	assert.Equal(t, types.StageDispatched, res.Stage)
	assert.Equal(t, "EURC", res.Symbol)
	assert.Equal(t, "0xtx", res.Transaction)
	assert.Equal(t, "0xpayer", res.Payer)
	assert.NotEmpty(t, res.PaymentID)

	require.Len(t, f.verified, 1)
	sent := f.verified[0]
	assert.Equal(t, "EURC", sent.EIP712Name())
	assert.Equal(t, "0x60a3e35cc302bfa44cb288bc5a4f316fdb1adb42", sent.Asset)
	assert.Equal(t, "5000000", sent.MaxAmountRequired)
	assert.Equal(t, "0x209693bc6afc0c5328ba36faf03c514ef312287c", sent.PayTo)
	assert.Equal(t, "https://api.example.com/premium", sent.Resource)
	assert.Equal(t, 1, f.settled)
}

func TestProcessPayment_ReputationProof(t *testing.T) {
	proof := &types.ProofOfPayment{TransactionHash: "0xtx", BlockNumber: 42, Network: "base", PaymentHash: "0xph"}
	f := &fakeFacilitator{
		settle: func(r types.PaymentRequirements) (*types.SettleResponse, error) {
			return &types.SettleResponse{Success: true, Transaction: "0xtx", Network: r.Network, ProofOfPayment: proof}, nil
		},
	}
	x := newTestX402(t, f, WithReputationProof(true))

	res, err := x.ProcessPayment(context.Background(), mustPayload(t, "base", `{}`))
	require.NoError(t, err)
	assert.True(t, res.Success())
	assert.Equal(t, proof, res.ProofOfPayment)

	require.Len(t, f.verified, 1)
	assert.Equal(t, map[string]interface{}{"includeProof": true}, f.verified[0].Extra[types.ReputationExtension])
	assert.Equal(t, "USD Coin", f.verified[0].EIP712Name())
}

func TestProcessPayment_RegistryDomainPerChain(t *testing.T) {
	x := newTestX402(t, &fakeFacilitator{})

	cases := []struct {
		network, body, name string
	}{
		{"ethereum", `{"token":{"symbol":"EURC"}}`, "Euro Coin"},
		{"celo", `{}`, "USDC"},
		{"base", ``, "USD Coin"},
	}
	for _, tc := range cases {
		res, err := x.ProcessPayment(context.Background(), mustPayload(t, tc.network, tc.body))
		require.NoError(t, err, tc.network)
		assert.Equal(t, tc.name, res.Requirements.EIP712Name(), tc.network)
	}
}

func TestProcessPayment_Rejected(t *testing.T) {
	f := &fakeFacilitator{verify: func(types.PaymentRequirements) (*types.VerifyResponse, error) {
		return &types.VerifyResponse{IsValid: false, InvalidReason: "insufficient_funds"}, nil
	}}
	x := newTestX402(t, f)

	res, err := x.ProcessPayment(context.Background(), mustPayload(t, "base", `{}`))
	require.NoError(t, err)
	assert.Equal(t, types.StatusRejected, res.Status)
	assert.Equal(t, "insufficient_funds", res.Reason)
	assert.False(t, res.Success())
	assert.Equal(t, 0, f.settled, "rejected payments are not settled")
	assert.Len(t, f.verified, 1, "rejections are not retried")
}

func TestProcessPayment_SettleRejected(t *testing.T) {
	f := &fakeFacilitator{settle: func(types.PaymentRequirements) (*types.SettleResponse, error) {
		return &types.SettleResponse{Success: false, ErrorReason: "nonce_already_used"}, nil
	}}
	x := newTestX402(t, f)

	res, err := x.ProcessPayment(context.Background(), mustPayload(t, "base", `{}`))
	require.NoError(t, err)
	assert.Equal(t, types.StatusRejected, res.Status)
	assert.Equal(t, "nonce_already_used", res.Reason)
}

func TestProcessPayment_FacilitatorError(t *testing.T) {
	f := &fakeFacilitator{verify: func(types.PaymentRequirements) (*types.VerifyResponse, error) {
		return nil, fmt.Errorf("%w: status 503", facilitator.ErrUnavailable)
	}}
	x := newTestX402(t, f)

	res, err := x.ProcessPayment(context.Background(), mustPayload(t, "base", `{}`))
	require.Error(t, err)
	require.NotNil(t, res)
	assert.Equal(t, types.StatusFacilitatorError, res.Status)
	assert.True(t, errors.Is(err, facilitator.ErrUnavailable))
	assert.Equal(t, types.ErrCodeFacilitator, types.ErrorCode(err))
	assert.Len(t, f.verified, 1, "no silent retry")
}

func TestProcessPayment_TimeoutIsFacilitatorError(t *testing.T) {
	f := &fakeFacilitator{}
	f.verify = func(types.PaymentRequirements) (*types.VerifyResponse, error) {
		time.Sleep(100 * time.Millisecond)
		return nil, context.DeadlineExceeded
	}
	x := newTestX402(t, f, WithTimeout(10*time.Millisecond))

	res, err := x.ProcessPayment(context.Background(), mustPayload(t, "base", `{}`))
	require.Error(t, err)
	assert.Equal(t, types.StatusFacilitatorError, res.Status)
	assert.True(t, errors.Is(err, facilitator.ErrUnavailable))
}

func TestProcessPayment_StructuralErrors(t *testing.T) {
	x := newTestX402(t, &fakeFacilitator{})

	cases := map[string]struct {
		payload *types.PaymentPayload
		want    error
	}{
		"nil payload":     {nil, types.ErrMalformedPayload},
		"no network":      {mustPayload(t, "", `{}`), types.ErrMalformedPayload},
		"unknown network": {mustPayload(t, "unknown-chain", `{}`), types.ErrUnknownNetwork},
		"unregistered":    {mustPayload(t, "celo", `{"token":{"symbol":"EURC"}}`), types.ErrUnresolvedToken},
		"disabled":        {mustPayload(t, "bsc", `{}`), types.ErrNetworkDisabled},
		"no payTo":        {mustPayload(t, "stellar", `{}`), types.ErrNotConfigured},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			res, err := x.ProcessPayment(context.Background(), tc.payload)
			assert.Nil(t, res)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.want), err.Error())
		})
	}
}

func TestProcessPayment_VerifyOnly(t *testing.T) {
	f := &fakeFacilitator{}
	x := newTestX402(t, f, WithVerifyOnly(true))

	res, err := x.ProcessPayment(context.Background(), mustPayload(t, "solana", `{"transaction":"AQID"}`))
	require.NoError(t, err)
	assert.True(t, res.Success())
	assert.True(t, res.VerifiedOnly)
	assert.Equal(t, 0, f.settled)
	assert.Nil(t, f.verified[0].Extra)
	assert.Equal(t, solanaPayTo, f.verified[0].PayTo)
}

func TestProcessPaymentWithPrice(t *testing.T) {
	f := &fakeFacilitator{}
	x := newTestX402(t, f)

	_, err := x.ProcessPaymentWithPrice(context.Background(), mustPayload(t, "ethereum", `{"token":{"symbol":"GHO"}}`), decimal.RequireFromString("2.5"))
	require.NoError(t, err)
	assert.Equal(t, "2500000000000000000", f.verified[0].MaxAmountRequired)
}

func TestProcessPayment_SignaturePrecheck(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	now := time.Now().Unix()
	auth := &types.EVMAuthorization{
		From:        crypto.PubkeyToAddress(key.PublicKey).Hex(),
		To:          evmPayTo,
		Value:       "5000000",
		ValidAfter:  fmt.Sprint(now - 60),
		ValidBefore: fmt.Sprint(now + 600),
		Nonce:       "0xf408d6d1f1d1bca7c6396ed30f00a46ca4e5b073fff983e42b348776a5aa651c",
	}
	signWith := func(name string) *types.PaymentPayload {
		sig, err := verification.SignAuthorization(verification.Domain{
			Name: name, Version: "2", ChainID: 42220,
			VerifyingContract: "0xcebA9300f2b948710d2653dD7B07f33A8B32118C",
		}, auth, func(d []byte) ([]byte, error) { return crypto.Sign(d, key) })
		require.NoError(t, err)
		body, err := json.Marshal(types.PayloadBody{Signature: sig, Authorization: auth})
		require.NoError(t, err)
		return mustPayload(t, "celo", string(body))
	}

	f := &fakeFacilitator{}
	x := newTestX402(t, f, WithSignaturePrecheck(true))

	res, err := x.ProcessPayment(context.Background(), signWith("USDC"))
	require.NoError(t, err)
	assert.Equal(t, types.StatusSettled, res.Status)

	res, err = x.ProcessPayment(context.Background(), signWith("USD Coin"))
	require.NoError(t, err)
	assert.Equal(t, types.StatusRejected, res.Status)
	assert.Equal(t, verification.ReasonInvalidSignature, res.Reason)
	assert.Equal(t, types.StageRequirements, res.Stage)
	assert.Len(t, f.verified, 1, "precheck failure never reaches the facilitator")
}

func TestProcessPayment_LogsStages(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	x := newTestX402(t, &fakeFacilitator{}, WithLogger(logger.NewZapLoggerFrom(zap.New(core))))

	_, err := x.ProcessPayment(context.Background(), mustPayload(t, "base",
		`{"token":{"address":"0x1111111111111111111111111111111111111111","symbol":"EURC","eip712":{"name":"EURC","version":"2"}}}`))
	require.NoError(t, err)

	var stages []interface{}
	for _, e := range logs.FilterField(zap.String("network", "base")).AllUntimed() {
		if s, ok := e.ContextMap()["stage"]; ok {
			stages = append(stages, s)
		}
	}
	assert.Equal(t, []interface{}{"RECEIVED", "TOKEN_RESOLVED", "REQUIREMENTS_BUILT", "DISPATCHED_TO_FACILITATOR"}, stages)
	assert.Equal(t, 1, logs.FilterMessage("payload token address differs from registry").Len())
}

func TestProcessPayment_Concurrent(t *testing.T) {
	f := &fakeFacilitator{}
	x := newTestX402(t, f)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			network := []string{"base", "celo", "polygon", "solana"}[i%4]
			res, err := x.ProcessPayment(context.Background(), mustPayload(t, network, `{}`))
			assert.NoError(t, err)
			assert.True(t, res.Success())
		}(i)
	}
	wg.Wait()
	assert.Len(t, f.verified, 20)
}

func TestRequirements(t *testing.T) {
	x := newTestX402(t, &fakeFacilitator{})

	req, err := x.Requirements(mustPayload(t, "ethereum", `{"token":{"address":"0x1aBaEA1f7C830bD89Acc67eC4af516284b1bC33c","symbol":"EURC"}}`))
	require.NoError(t, err)
	assert.Equal(t, "Euro Coin", req.EIP712Name())
	assert.Equal(t, "5000000", req.MaxAmountRequired)
}

func TestPaymentRequired(t *testing.T) {
	x := newTestX402(t, &fakeFacilitator{})

	resp, err := x.PaymentRequired("https://api.example.com/other")
	require.NoError(t, err)
	assert.Equal(t, ProtocolVersion, resp.X402Version)
	assert.Equal(t, "Payment of 5 USDC required", resp.Error)

	seen := map[string]bool{}
	for _, a := range resp.Accepts {
		seen[a.Network] = true
		assert.Equal(t, "https://api.example.com/other", a.Resource)
	}
	assert.True(t, seen["base"])
	assert.True(t, seen["solana"])
	assert.False(t, seen["bsc"], "disabled")
	assert.False(t, seen["stellar"], "no payTo for stellar")

	eurc, err := x.PaymentRequired("", "EURC")
	require.NoError(t, err)
	assert.Equal(t, "Payment of 5 EURC required", eurc.Error)
	require.Len(t, eurc.Accepts, 3)
	for _, a := range eurc.Accepts {
		assert.Contains(t, []string{"base", "ethereum", "avalanche"}, a.Network)
	}
}

func TestPaymentRequired_SkipsTokensTooCoarseForPrice(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	x := newTestX402(t, &fakeFacilitator{},
		WithPayTo(types.ChainStellar, "GA5ZSEJYB37JRC5AVCIA5MOP4RHTM335X2KGX3IHOJAPP5RE34K4KZVN"),
		WithPrice(decimal.RequireFromString("0.0000001")),
		WithLogger(logger.NewZapLoggerFrom(zap.New(core))),
	)

	resp, err := x.PaymentRequired("")
	require.NoError(t, err)
	require.Len(t, resp.Accepts, 1)
	assert.Equal(t, "stellar", resp.Accepts[0].Network)
	assert.Equal(t, "1", resp.Accepts[0].MaxAmountRequired)
	assert.Equal(t, "Payment of 0.0000001 USDC required", resp.Error)
	assert.NotZero(t, logs.FilterMessage("token left out of payment challenge").Len())

	// Nothing left to offer is a configuration error, not an empty challenge.
	x = newTestX402(t, &fakeFacilitator{}, WithPrice(decimal.RequireFromString("0.0000001")))
	_, err = x.PaymentRequired("")
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrInvalidAmount))
}

func TestNew_RequiresDependencies(t *testing.T) {
	reg, err := networks.NewDefaultRegistry()
	require.NoError(t, err)

	_, err = New(nil, &fakeFacilitator{})
	assert.True(t, errors.Is(err, types.ErrNotConfigured))
	_, err = New(reg, nil)
	assert.True(t, errors.Is(err, types.ErrNotConfigured))
}

func TestSupported(t *testing.T) {
	x := newTestX402(t, &fakeFacilitator{})

	kinds := x.Supported().Kinds
	assert.Len(t, kinds, len(x.Registry().Enabled()))
	for _, k := range kinds {
		assert.Equal(t, "exact", k.Scheme)
		assert.NotEqual(t, "bsc", k.Network)
	}
}

func TestGetVersion(t *testing.T) {
	x := newTestX402(t, &fakeFacilitator{})

	v := x.GetVersion()
	assert.Equal(t, Version, v["library_version"])
	assert.Equal(t, ProtocolVersion, v["protocol_version"])
	assert.Contains(t, v["supported_networks"], types.Network("base"))
}
