package client

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/betbot/clobauth/clob/signing"
	"github.com/betbot/clobauth/clob/types"
)

// fakeExchange 最小化的 CLOB 服务端：校验 L1 签名和 L2 HMAC
type fakeExchange struct {
	t       *testing.T
	chainID types.Chain

	mu        sync.Mutex
	now       int64
	tolerance int64
	creds     map[common.Address]*types.ApiKeyCreds
	extra     map[string]*types.ApiKeyCreds
	calls     map[string]int
	queries   map[string]url.Values
	mismatch  int
	orders    []types.NewOrder
	lastBody  map[string]string
	tickSize  float64
	negRisk   bool
	feeRate   int
}

func newFakeExchange(t *testing.T, now int64) (*fakeExchange, *httptest.Server) {
	f := &fakeExchange{
		t:         t,
		chainID:   types.ChainPolygon,
		now:       now,
		tolerance: 30,
		creds:     map[common.Address]*types.ApiKeyCreds{},
		extra:     map[string]*types.ApiKeyCreds{},
		calls:     map[string]int{},
		queries:   map[string]url.Values{},
		lastBody:  map[string]string{},
		tickSize:  0.01,
	}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeExchange) count(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[key]
}

func (f *fakeExchange) setMarket(tickSize float64, negRisk bool, feeRate int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tickSize, f.negRisk, f.feeRate = tickSize, negRisk, feeRate
}

func (f *fakeExchange) postedOrders() []types.NewOrder {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]types.NewOrder(nil), f.orders...)
}

// accept 额外接受一组凭证（同一地址的第二个 API key）
func (f *fakeExchange) accept(creds *types.ApiKeyCreds) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *creds
	f.extra[creds.Key] = &cp
}

func (f *fakeExchange) ownerMismatches() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mismatch
}

func (f *fakeExchange) query(key string) url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queries[key]
}

func (f *fakeExchange) body(key string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastBody[key]
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (f *fakeExchange) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	key := r.Method + " " + r.URL.Path
	if strings.HasPrefix(r.URL.Path, "/data/order/") {
		key = r.Method + " /data/order/"
	}

	f.mu.Lock()
	f.calls[key]++
	f.lastBody[key] = string(body)
	f.queries[key] = r.URL.Query()
	tickSize, negRisk, feeRate := f.tickSize, f.negRisk, f.feeRate
	f.mu.Unlock()

	switch key {
	case "GET /time":
		f.mu.Lock()
		now := f.now
		f.mu.Unlock()
		_, _ = w.Write([]byte(strconv.FormatInt(now, 10)))
	case "GET /tick-size":
		writeJSON(w, http.StatusOK, map[string]any{"minimum_tick_size": tickSize})
	case "GET /neg-risk":
		writeJSON(w, http.StatusOK, map[string]any{"neg_risk": negRisk})
	case "GET /fee-rate":
		writeJSON(w, http.StatusOK, map[string]any{"base_fee": feeRate})
	case "POST /auth/api-key":
		addr, ok := f.checkL1(w, r)
		if !ok {
			return
		}
		f.mu.Lock()
		_, exists := f.creds[addr]
		if !exists {
			f.creds[addr] = &types.ApiKeyCreds{
				Key:        "key-" + addr.Hex()[2:10],
				Secret:     "c2VjcmV0LWZvci10ZXN0cw==",
				Passphrase: "pass-" + addr.Hex()[2:8],
			}
		}
		c := f.creds[addr]
		f.mu.Unlock()
		if exists {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "could not create api key"})
			return
		}
		writeJSON(w, http.StatusOK, types.ApiKeyRaw{ApiKey: c.Key, Secret: c.Secret, Passphrase: c.Passphrase})
	case "GET /auth/derive-api-key":
		addr, ok := f.checkL1(w, r)
		if !ok {
			return
		}
		f.mu.Lock()
		c := f.creds[addr]
		f.mu.Unlock()
		if c == nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "could not derive api key"})
			return
		}
		writeJSON(w, http.StatusOK, types.ApiKeyRaw{ApiKey: c.Key, Secret: c.Secret, Passphrase: c.Passphrase})
	case "GET /auth/api-keys":
		c, ok := f.checkL2(w, r, body)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, types.ApiKeysResponse{ApiKeys: []string{c.Key}})
	case "DELETE /auth/api-key":
		if _, ok := f.checkL2(w, r, body); !ok {
			return
		}
		f.mu.Lock()
		delete(f.creds, common.HexToAddress(r.Header.Get(types.HeaderPolyAddress)))
		f.mu.Unlock()
		writeJSON(w, http.StatusOK, "OK")
	case "POST /order":
		c, ok := f.checkL2(w, r, body)
		if !ok {
			return
		}
		var o types.NewOrder
		if err := json.Unmarshal(body, &o); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		f.mu.Lock()
		if o.Owner != c.Key {
			f.mismatch++
			f.mu.Unlock()
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "the order owner has to be the owner of the API KEY"})
			return
		}
		f.orders = append(f.orders, o)
		f.mu.Unlock()
		writeJSON(w, http.StatusOK, types.OrderResponse{Success: true, OrderID: "0xorder", Status: "live"})
	case "POST /orders":
		if _, ok := f.checkL2(w, r, body); !ok {
			return
		}
		var batch []types.NewOrder
		if err := json.Unmarshal(body, &batch); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		out := make([]types.OrderResponse, len(batch))
		for i := range batch {
			out[i] = types.OrderResponse{Success: true, OrderID: "0xorder" + strconv.Itoa(i), Status: "live"}
		}
		writeJSON(w, http.StatusOK, out)
	case "DELETE /order":
		if _, ok := f.checkL2(w, r, body); !ok {
			return
		}
		var req map[string]string
		_ = json.Unmarshal(body, &req)
		writeJSON(w, http.StatusOK, types.CancelResponse{Canceled: []string{req["orderID"]}, NotCanceled: map[string]string{}})
	case "DELETE /orders":
		if _, ok := f.checkL2(w, r, body); !ok {
			return
		}
		var ids []string
		_ = json.Unmarshal(body, &ids)
		writeJSON(w, http.StatusOK, types.CancelResponse{Canceled: ids, NotCanceled: map[string]string{}})
	case "DELETE /cancel-all":
		if _, ok := f.checkL2(w, r, body); !ok {
			return
		}
		writeJSON(w, http.StatusOK, types.CancelResponse{Canceled: []string{"0xa", "0xb"}, NotCanceled: map[string]string{}})
	case "GET /data/order/":
		if _, ok := f.checkL2(w, r, body); !ok {
			return
		}
		id := strings.TrimPrefix(r.URL.Path, "/data/order/")
		writeJSON(w, http.StatusOK, types.OpenOrder{ID: id, Status: "LIVE", Side: "BUY", Price: "0.5", OriginalSize: "10", SizeMatched: "0"})
	case "GET /balance-allowance":
		if _, ok := f.checkL2(w, r, body); !ok {
			return
		}
		writeJSON(w, http.StatusOK, types.BalanceAllowanceResponse{Balance: "25000000", Allowances: map[string]string{"0x4bFb41d5B3570DeFd03C39a9A4D8dE6Bd8B8982E": "115792089237316195423570985008687907853269984665640564039457584007913129639935"}})
	case "GET /balance-allowance/update":
		if _, ok := f.checkL2(w, r, body); !ok {
			return
		}
		w.WriteHeader(http.StatusOK)
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	}
}

func (f *fakeExchange) fresh(w http.ResponseWriter, tsHeader string) (int64, bool) {
	ts, err := strconv.ParseInt(tsHeader, 10, 64)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "bad timestamp"})
		return 0, false
	}
	f.mu.Lock()
	skew := f.now - ts
	tol := f.tolerance
	f.mu.Unlock()
	if skew < 0 {
		skew = -skew
	}
	if skew > tol {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized/Invalid api key"})
		return 0, false
	}
	return ts, true
}

func (f *fakeExchange) checkL1(w http.ResponseWriter, r *http.Request) (common.Address, bool) {
	ts, ok := f.fresh(w, r.Header.Get(types.HeaderPolyTimestamp))
	if !ok {
		return common.Address{}, false
	}
	nonce, err := strconv.ParseInt(r.Header.Get(types.HeaderPolyNonce), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "bad nonce"})
		return common.Address{}, false
	}
	claimed := common.HexToAddress(r.Header.Get(types.HeaderPolyAddress))
	hash, err := signing.ClobAuthHash(claimed, f.chainID, ts, nonce)
	if err != nil {
		f.t.Errorf("fake exchange: hash: %v", err)
		writeJSON(w, http.StatusInternalServerError, nil)
		return common.Address{}, false
	}
	sig, err := signing.DecodeSignature(r.Header.Get(types.HeaderPolySignature))
	if err == nil {
		var got common.Address
		if got, err = signing.RecoverAddress(hash, sig); err == nil && got == claimed {
			return claimed, true
		}
	}
	writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid L1 Request headers"})
	return common.Address{}, false
}

func (f *fakeExchange) checkL2(w http.ResponseWriter, r *http.Request, body []byte) (*types.ApiKeyCreds, bool) {
	tsHeader := r.Header.Get(types.HeaderPolyTimestamp)
	if _, ok := f.fresh(w, tsHeader); !ok {
		return nil, false
	}
	addr := common.HexToAddress(r.Header.Get(types.HeaderPolyAddress))
	key := r.Header.Get(types.HeaderPolyAPIKey)
	f.mu.Lock()
	c := f.creds[addr]
	if c == nil || c.Key != key {
		c = f.extra[key]
	}
	f.mu.Unlock()
	if c == nil || c.Key != key || c.Passphrase != r.Header.Get(types.HeaderPolyPassphrase) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized/Invalid api key"})
		return nil, false
	}
	want, err := signing.BuildPolyHmacSignature(c.Secret, tsHeader, r.Method, r.URL.Path, string(body))
	if err != nil || want != r.Header.Get(types.HeaderPolySignature) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized/Invalid api key"})
		return nil, false
	}
	return c, true
}
