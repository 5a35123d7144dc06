package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/betbot/clobauth/clob/client"
	"github.com/betbot/clobauth/clob/credstore"
	"github.com/betbot/clobauth/clob/signing"
	"github.com/betbot/clobauth/clob/types"
)

const (
	testKey     = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	testAddress = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
	testTokenID = "71321045679252212594626385532706912750332728571942532289631379312455583992563"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd, _ := newRootCmd(&GlobalFlags{}, BuildInfo{Version: "test"})
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return buf.String(), err
}

// stubExchange 只记录请求路径，按路径返回固定响应
type stubExchange struct {
	mu    sync.Mutex
	paths []string
}

func (s *stubExchange) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.paths = append(s.paths, r.Method+" "+r.URL.Path)
	s.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	switch r.Method + " " + r.URL.Path {
	case "GET " + client.EndpointFeeRate:
		_, _ = w.Write([]byte(`{"base_fee":0}`))
	case "GET " + client.EndpointTickSize:
		_, _ = w.Write([]byte(`{"minimum_tick_size":0.001}`))
	case "GET " + client.EndpointNegRisk:
		_, _ = w.Write([]byte(`{"neg_risk":true}`))
	case "POST " + client.EndpointCreateAPIKey:
		_, _ = w.Write([]byte(`{"apiKey":"key-1","secret":"c2VjcmV0LWZvci1jbGk=","passphrase":"passphrase-1"}`))
	case "GET " + client.EndpointGetAPIKeys:
		_, _ = w.Write([]byte(`{"apiKeys":["key-1"]}`))
	case "DELETE " + client.EndpointDeleteAPIKey:
		_, _ = w.Write([]byte(`"OK"`))
	case "GET " + client.EndpointGetBalanceAllowance:
		_, _ = w.Write([]byte(`{"balance":"25000000"}`))
	case "GET " + client.EndpointGetOrder + "0xabc":
		_, _ = w.Write([]byte(`{"id":"0xabc","status":"LIVE"}`))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (s *stubExchange) seen() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.paths...)
}

func newStub(t *testing.T) (*stubExchange, *httptest.Server) {
	t.Helper()
	s := &stubExchange{}
	srv := httptest.NewServer(s)
	t.Cleanup(srv.Close)
	return s, srv
}

func TestRootHelp(t *testing.T) {
	out, err := run(t, "--help")
	require.NoError(t, err)
	for _, sub := range []string{"address", "derive", "headers", "sign-order", "post-order", "revoke", "market", "order", "balance", "--config"} {
		assert.Contains(t, out, sub)
	}
}

func TestAddressCommand(t *testing.T) {
	t.Setenv("CLOB_PRIVATE_KEY", testKey)

	out, err := run(t, "address")
	require.NoError(t, err)
	var got map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, testAddress, got["address"])
	assert.Equal(t, "L1", got["mode"])
}

func TestAddressWithoutWallet(t *testing.T) {
	_, err := run(t, "address")
	require.ErrorIs(t, err, types.ErrNoSigner)
}

func TestSignOrderCommand(t *testing.T) {
	stub, srv := newStub(t)
	t.Setenv("CLOB_PRIVATE_KEY", testKey)
	t.Setenv("CLOB_HOST", srv.URL)

	out, err := run(t, "sign-order",
		"--token", testTokenID,
		"--side", "buy",
		"--price", "0.25",
		"--size", "8",
		"--tick-size", "0.01",
		"--neg-risk", "false",
	)
	require.NoError(t, err)

	var order types.SignedOrder
	require.NoError(t, json.Unmarshal([]byte(out), &order))
	assert.Equal(t, "2000000", order.MakerAmount)
	assert.Equal(t, "8000000", order.TakerAmount)
	assert.Equal(t, types.SideBuy, order.Side)
	require.NoError(t, signing.VerifyOrder(types.ChainPolygon, common.HexToAddress(client.PolygonMainnetContracts.Exchange), &order))

	// tick size 和 neg risk 已给出，只查询手续费率
	assert.Equal(t, []string{"GET /fee-rate"}, stub.seen())
}

func TestSignOrderRejectsBadTick(t *testing.T) {
	t.Setenv("CLOB_PRIVATE_KEY", testKey)
	_, err := run(t, "sign-order", "--token", testTokenID, "--price", "0.5", "--size", "1", "--tick-size", "0.05")
	require.Error(t, err)
	assert.True(t, types.IsValidation(err))
}

func TestHeadersCommandL2(t *testing.T) {
	t.Setenv("CLOB_PRIVATE_KEY", testKey)
	t.Setenv("CLOB_API_KEY", "key-1")
	t.Setenv("CLOB_API_SECRET", "c2VjcmV0LWZvci1jbGk=")
	t.Setenv("CLOB_API_PASSPHRASE", "passphrase-1")

	out, err := run(t, "headers", "--method", "delete", "--path", "/order", "--body", `{"orderID":"0x1"}`)
	require.NoError(t, err)
	var h map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &h))
	assert.Equal(t, testAddress, h[types.HeaderPolyAddress])
	assert.Equal(t, "key-1", h[types.HeaderPolyAPIKey])

	want, err := signing.BuildPolyHmacSignature("c2VjcmV0LWZvci1jbGk=", h[types.HeaderPolyTimestamp], "DELETE", "/order", `{"orderID":"0x1"}`)
	require.NoError(t, err)
	assert.Equal(t, want, h[types.HeaderPolySignature])
}

func TestHeadersCommandL1(t *testing.T) {
	t.Setenv("CLOB_PRIVATE_KEY", testKey)

	out, err := run(t, "headers", "--level", "1", "--nonce", "7")
	require.NoError(t, err)
	var h map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &h))
	assert.Equal(t, "7", h[types.HeaderPolyNonce])
	assert.Equal(t, testAddress, h[types.HeaderPolyAddress])

	_, err = run(t, "headers", "--path", "/orders")
	require.ErrorIs(t, err, types.ErrNoCreds)
}

func TestDeriveCommandMasksSecrets(t *testing.T) {
	stub, srv := newStub(t)
	t.Setenv("CLOB_PRIVATE_KEY", testKey)
	t.Setenv("CLOB_HOST", srv.URL)

	out, err := run(t, "derive")
	require.NoError(t, err)
	var got credsOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "key-1", got.APIKey)
	assert.NotEqual(t, "c2VjcmV0LWZvci1jbGk=", got.Secret)
	assert.False(t, got.Stored)
	assert.Equal(t, []string{"POST /auth/api-key"}, stub.seen())

	out, err = run(t, "derive", "--show-secret")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "c2VjcmV0LWZvci1jbGk=", got.Secret)
	assert.Equal(t, "passphrase-1", got.Passphrase)
}

func TestPostOrderNeedsCreds(t *testing.T) {
	t.Setenv("CLOB_PRIVATE_KEY", testKey)
	_, err := run(t, "post-order", "--token", testTokenID, "--price", "0.5", "--size", "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "derive")
}

func TestFormatVersion(t *testing.T) {
	assert.Equal(t, "dev (commit: none)", formatVersion(BuildInfo{}))
	assert.Equal(t, "1.2.0 (commit: abc)", formatVersion(BuildInfo{Version: "1.2.0", Commit: "abc"}))
}

func setL2Env(t *testing.T) {
	t.Setenv("CLOB_PRIVATE_KEY", testKey)
	t.Setenv("CLOB_API_KEY", "key-1")
	t.Setenv("CLOB_API_SECRET", "c2VjcmV0LWZvci1jbGk=")
	t.Setenv("CLOB_API_PASSPHRASE", "passphrase-1")
}

func TestHeadersCommandTimestamp(t *testing.T) {
	setL2Env(t)

	ts := strconv.FormatInt(time.Now().Unix()-5, 10)
	out, err := run(t, "headers", "--path", "/orders", "--timestamp", ts)
	require.NoError(t, err)
	var h map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &h))
	assert.Equal(t, ts, h[types.HeaderPolyTimestamp])

	stale := strconv.FormatInt(time.Now().Unix()-3600, 10)
	_, err = run(t, "headers", "--path", "/orders", "--timestamp", stale)
	var se *types.StaleAuthError
	require.ErrorAs(t, err, &se)
}

func TestMarketCommand(t *testing.T) {
	stub, srv := newStub(t)
	t.Setenv("CLOB_HOST", srv.URL)

	out, err := run(t, "market", "--token", testTokenID)
	require.NoError(t, err)
	var meta types.MarketMeta
	require.NoError(t, json.Unmarshal([]byte(out), &meta))
	assert.Equal(t, types.MarketMeta{TickSize: types.TickSize0001, NegRisk: true}, meta)
	assert.Equal(t, []string{"GET /tick-size", "GET /neg-risk", "GET /fee-rate"}, stub.seen())
}

func TestQueryCommands(t *testing.T) {
	stub, srv := newStub(t)
	setL2Env(t)
	t.Setenv("CLOB_HOST", srv.URL)

	out, err := run(t, "balance")
	require.NoError(t, err)
	assert.Contains(t, out, `"balance": "25000000"`)

	out, err = run(t, "order", "--id", "0xabc")
	require.NoError(t, err)
	assert.Contains(t, out, `"status": "LIVE"`)
	assert.Equal(t, []string{"GET /balance-allowance", "GET /data/order/0xabc"}, stub.seen())

	_, err = run(t, "balance", "--asset", "conditional")
	assert.True(t, types.IsValidation(err))
}

func TestDeriveThenRevokeWithStore(t *testing.T) {
	stub, srv := newStub(t)
	t.Setenv("CLOB_PRIVATE_KEY", testKey)
	t.Setenv("CLOB_HOST", srv.URL)
	dir := filepath.Join(t.TempDir(), "creds")
	key := strings.Repeat("ab", 32)
	t.Setenv("CLOB_CREDSTORE_PATH", dir)
	t.Setenv("CLOB_MASTER_KEY", key)

	out, err := run(t, "derive")
	require.NoError(t, err)
	var got credsOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.True(t, got.Stored)

	out, err = run(t, "revoke")
	require.NoError(t, err)
	assert.Contains(t, out, "revoked")
	assert.Equal(t, []string{"POST /auth/api-key", "GET /auth/api-keys", "DELETE /auth/api-key"}, stub.seen())

	store, err := credstore.Open(dir, key)
	require.NoError(t, err)
	defer store.Close()
	creds, err := store.Load(types.ChainPolygon, common.HexToAddress(testAddress))
	require.NoError(t, err)
	assert.Nil(t, creds)
}
