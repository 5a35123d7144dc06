package signing

import (
	"context"
	"encoding/json"
	"math/big"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/polymarket/go-order-utils/pkg/builder"
	"github.com/polymarket/go-order-utils/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/betbot/clobauth/clob/types"
)

const longTokenID = "100000000000000000000000000000000000000000000000000000000000000000000000000007"

var (
	testNegRiskExchange = common.HexToAddress("0xC5d563A36AE78145C45a50134d48A1215220f80a")
	testFunder          = common.HexToAddress("0x1111111111111111111111111111111111111111")
	polygonExchanges    = ExchangeAddresses{Exchange: testExchange, NegRiskExchange: testNegRiskExchange}
	defaultOpts         = types.CreateOrderOptions{TickSize: types.TickSize001}
)

func fixedSalt(v int64) SaltFunc {
	return func() (int64, error) { return v, nil }
}

func newTestOrderSigner(t *testing.T, opts ...OrderSignerOption) *OrderSigner {
	t.Helper()
	osg, err := NewOrderSigner(newTestSigner(t), types.ChainPolygon, polygonExchanges, opts...)
	require.NoError(t, err)
	return osg
}

func buyArgs(tokenID string) *types.OrderArgs {
	return &types.OrderArgs{
		TokenID: tokenID,
		Price:   d("0.50"),
		Size:    d("10.0"),
		Side:    types.SideBuy,
	}
}

func TestSignOrderEOA(t *testing.T) {
	osg := newTestOrderSigner(t, WithSaltFunc(fixedSalt(12345)))
	order, err := osg.SignOrder(context.Background(), buyArgs("1234"), defaultOpts)
	require.NoError(t, err)

	assert.Equal(t, int64(12345), order.Salt)
	assert.Equal(t, testAddress, order.Maker)
	assert.Equal(t, testAddress, order.Signer)
	assert.Equal(t, ZeroAddress, order.Taker)
	assert.Equal(t, "1234", order.TokenID)
	assert.Equal(t, "5000000", order.MakerAmount)
	assert.Equal(t, "10000000", order.TakerAmount)
	assert.Equal(t, "0", order.Expiration)
	assert.Equal(t, "0", order.Nonce)
	assert.Equal(t, "0", order.FeeRateBps)
	assert.Equal(t, types.SideBuy, order.Side)
	assert.Equal(t, 0, order.SignatureType)
	assert.Len(t, order.Signature, 132)

	require.NoError(t, VerifyOrder(types.ChainPolygon, testExchange, order))
}

func TestSignOrderProxyUsesFunderAsMaker(t *testing.T) {
	osg := newTestOrderSigner(t, WithSignatureType(types.SignatureTypePolyProxy), WithFunder(testFunder))
	order, err := osg.SignOrder(context.Background(), buyArgs("1234"), defaultOpts)
	require.NoError(t, err)

	assert.Equal(t, testFunder.Hex(), order.Maker)
	assert.Equal(t, testAddress, order.Signer)
	assert.Equal(t, 1, order.SignatureType)
	require.NoError(t, VerifyOrder(types.ChainPolygon, testExchange, order))
}

func TestSignOrderEOAIgnoresFunder(t *testing.T) {
	osg := newTestOrderSigner(t, WithFunder(testFunder))
	order, err := osg.SignOrder(context.Background(), buyArgs("1234"), defaultOpts)
	require.NoError(t, err)
	assert.Equal(t, testAddress, order.Maker)
	assert.Equal(t, testAddress, order.Signer)
}

func TestNewOrderSignerRequiresFunderForProxyTypes(t *testing.T) {
	for _, st := range []types.SignatureType{types.SignatureTypePolyProxy, types.SignatureTypePolyGnosisSafe} {
		_, err := NewOrderSigner(newTestSigner(t), types.ChainPolygon, polygonExchanges, WithSignatureType(st))
		var ve *types.ValidationError
		require.ErrorAs(t, err, &ve, st.String())
		assert.Equal(t, "funder", ve.Field)
	}

	_, err := NewOrderSigner(newTestSigner(t), types.ChainPolygon, polygonExchanges, WithSignatureType(types.SignatureType(7)))
	assert.True(t, types.IsValidation(err))

	_, err = NewOrderSigner(nil, types.ChainPolygon, polygonExchanges)
	assert.ErrorIs(t, err, types.ErrNoSigner)
}

func TestSignOrderDistinctSalts(t *testing.T) {
	var n atomic.Int64
	osg := newTestOrderSigner(t, WithSaltFunc(func() (int64, error) { return n.Add(1), nil }))

	a, err := osg.SignOrder(context.Background(), buyArgs("1234"), defaultOpts)
	require.NoError(t, err)
	b, err := osg.SignOrder(context.Background(), buyArgs("1234"), defaultOpts)
	require.NoError(t, err)

	assert.NotEqual(t, a.Salt, b.Salt)
	assert.NotEqual(t, a.Signature, b.Signature)
	require.NoError(t, VerifyOrder(types.ChainPolygon, testExchange, a))
	require.NoError(t, VerifyOrder(types.ChainPolygon, testExchange, b))
}

func TestSignOrderRandomSaltIsJSONSafe(t *testing.T) {
	osg := newTestOrderSigner(t)
	for i := 0; i < 32; i++ {
		order, err := osg.SignOrder(context.Background(), buyArgs("1234"), defaultOpts)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, order.Salt, int64(0))
		assert.Less(t, order.Salt, int64(1)<<53)
	}
}

func TestSignOrderConcurrent(t *testing.T) {
	osg := newTestOrderSigner(t)
	var wg sync.WaitGroup
	orders := make([]*types.SignedOrder, 16)
	errs := make([]error, 16)
	for i := range orders {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			orders[i], errs[i] = osg.SignOrder(context.Background(), buyArgs("1234"), defaultOpts)
		}(i)
	}
	wg.Wait()
	for i := range orders {
		require.NoError(t, errs[i])
		require.NoError(t, VerifyOrder(types.ChainPolygon, testExchange, orders[i]))
	}
}

func TestSignOrderLongTokenID(t *testing.T) {
	osg := newTestOrderSigner(t)
	order, err := osg.SignOrder(context.Background(), buyArgs(longTokenID), defaultOpts)
	require.NoError(t, err)
	assert.Equal(t, longTokenID, order.TokenID)
	require.NoError(t, VerifyOrder(types.ChainPolygon, testExchange, order))
}

func TestParseTokenID(t *testing.T) {
	id, err := ParseTokenID("0xff")
	require.NoError(t, err)
	assert.Equal(t, "255", id.String())

	for _, bad := range []string{"", "abc", "-1", "1.5",
		// 2^256
		"115792089237316195423570985008687907853269984665640564039457584007913129639936",
	} {
		_, err := ParseTokenID(bad)
		assert.True(t, types.IsValidation(err), bad)
	}

	top, err := ParseTokenID("115792089237316195423570985008687907853269984665640564039457584007913129639935")
	require.NoError(t, err)
	assert.Equal(t, 256, top.BitLen())
}

func TestSignOrderValidation(t *testing.T) {
	osg := newTestOrderSigner(t)
	neg := -1
	negNonce := int64(-1)
	badTaker := "not-an-address"

	cases := map[string]*types.OrderArgs{
		"price zero":   {TokenID: "1", Price: d("0"), Size: d("10"), Side: types.SideBuy},
		"price one":    {TokenID: "1", Price: d("1"), Size: d("10"), Side: types.SideBuy},
		"size zero":    {TokenID: "1", Price: d("0.5"), Size: d("0"), Side: types.SideBuy},
		"size neg":     {TokenID: "1", Price: d("0.5"), Size: d("-3"), Side: types.SideBuy},
		"bad token":    {TokenID: "x1", Price: d("0.5"), Size: d("10"), Side: types.SideBuy},
		"neg fee":      {TokenID: "1", Price: d("0.5"), Size: d("10"), Side: types.SideBuy, FeeRateBps: &neg},
		"neg nonce":    {TokenID: "1", Price: d("0.5"), Size: d("10"), Side: types.SideBuy, Nonce: &negNonce},
		"bad taker":    {TokenID: "1", Price: d("0.5"), Size: d("10"), Side: types.SideBuy, Taker: &badTaker},
		"missing side": {TokenID: "1", Price: d("0.5"), Size: d("10")},
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := osg.SignOrder(context.Background(), args, defaultOpts)
			require.Error(t, err)
			assert.True(t, types.IsValidation(err), err.Error())
		})
	}
}

func TestSignOrderOptionalFields(t *testing.T) {
	osg := newTestOrderSigner(t)
	fee, nonce, exp := 100, int64(7), int64(1893456000)
	taker := "0x2222222222222222222222222222222222222222"
	args := buyArgs("1234")
	args.FeeRateBps, args.Nonce, args.Expiration, args.Taker = &fee, &nonce, &exp, &taker

	order, err := osg.SignOrder(context.Background(), args, defaultOpts)
	require.NoError(t, err)
	assert.Equal(t, "100", order.FeeRateBps)
	assert.Equal(t, "7", order.Nonce)
	assert.Equal(t, "1893456000", order.Expiration)
	assert.Equal(t, common.HexToAddress(taker).Hex(), order.Taker)
	require.NoError(t, VerifyOrder(types.ChainPolygon, testExchange, order))
}

func TestSignOrderNegRiskUsesNegRiskExchange(t *testing.T) {
	osg := newTestOrderSigner(t)
	order, err := osg.SignOrder(context.Background(), buyArgs("1234"), types.CreateOrderOptions{TickSize: types.TickSize001, NegRisk: true})
	require.NoError(t, err)

	require.NoError(t, VerifyOrder(types.ChainPolygon, testNegRiskExchange, order))
	assert.Error(t, VerifyOrder(types.ChainPolygon, testExchange, order))

	noNegRisk, err := NewOrderSigner(newTestSigner(t), types.ChainPolygon, ExchangeAddresses{Exchange: testExchange})
	require.NoError(t, err)
	_, err = noNegRisk.SignOrder(context.Background(), buyArgs("1234"), types.CreateOrderOptions{TickSize: types.TickSize001, NegRisk: true})
	assert.True(t, types.IsValidation(err))
}

func TestSignMarketOrder(t *testing.T) {
	osg := newTestOrderSigner(t)
	order, err := osg.SignMarketOrder(context.Background(), &types.MarketOrderArgs{
		TokenID:   "1234",
		Amount:    d("100"),
		Price:     d("0.5"),
		Side:      types.SideBuy,
		OrderType: types.OrderTypeFOK,
	}, defaultOpts)
	require.NoError(t, err)
	assert.Equal(t, "100000000", order.MakerAmount)
	assert.Equal(t, "200000000", order.TakerAmount)
	assert.Equal(t, "0", order.Expiration)
	require.NoError(t, VerifyOrder(types.ChainPolygon, testExchange, order))

	_, err = osg.SignMarketOrder(context.Background(), &types.MarketOrderArgs{
		TokenID: "1234", Amount: d("100"), Price: d("0.5"), Side: types.SideBuy, OrderType: types.OrderTypeGTC,
	}, defaultOpts)
	assert.True(t, types.IsValidation(err))
}

func TestSignedOrderJSON(t *testing.T) {
	osg := newTestOrderSigner(t, WithSaltFunc(fixedSalt(9007199254740991)))
	order, err := osg.SignOrder(context.Background(), buyArgs(longTokenID), defaultOpts)
	require.NoError(t, err)

	raw, err := json.Marshal(order)
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	assert.Equal(t, float64(9007199254740991), m["salt"])
	assert.Equal(t, longTokenID, m["tokenId"])
	assert.Equal(t, "BUY", m["side"])
	assert.Equal(t, float64(0), m["signatureType"])
}

// go-order-utils 是交易所维护的独立实现，签名结果必须与之一致
func TestSignOrderMatchesGoOrderUtils(t *testing.T) {
	key, err := crypto.HexToECDSA(testPrivateKey[2:])
	require.NoError(t, err)

	cases := []struct {
		name    string
		side    types.Side
		sigType types.SignatureType
		funder  common.Address
	}{
		{"eoa buy", types.SideBuy, types.SignatureTypeEOA, common.Address{}},
		{"eoa sell", types.SideSell, types.SignatureTypeEOA, common.Address{}},
		{"safe buy", types.SideBuy, types.SignatureTypePolyGnosisSafe, testFunder},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			const salt = int64(1700000000123)
			opts := []OrderSignerOption{WithSaltFunc(fixedSalt(salt)), WithSignatureType(tc.sigType)}
			if tc.funder != (common.Address{}) {
				opts = append(opts, WithFunder(tc.funder))
			}
			osg := newTestOrderSigner(t, opts...)
			args := buyArgs(longTokenID)
			args.Side = tc.side
			ours, err := osg.SignOrder(context.Background(), args, defaultOpts)
			require.NoError(t, err)

			side := model.BUY
			if tc.side == types.SideSell {
				side = model.SELL
			}
			ob := builder.NewExchangeOrderBuilderImpl(big.NewInt(137), func() int64 { return salt })
			theirs, err := ob.BuildSignedOrder(key, &model.OrderData{
				Maker:         ours.Maker,
				Taker:         ours.Taker,
				TokenId:       ours.TokenID,
				MakerAmount:   ours.MakerAmount,
				TakerAmount:   ours.TakerAmount,
				Side:          side,
				FeeRateBps:    ours.FeeRateBps,
				Nonce:         ours.Nonce,
				Signer:        ours.Signer,
				Expiration:    ours.Expiration,
				SignatureType: model.SignatureType(tc.sigType),
			}, model.CTFExchange)
			require.NoError(t, err)

			assert.Equal(t, salt, theirs.Salt.Int64())
			ourSig, err := DecodeSignature(ours.Signature)
			require.NoError(t, err)
			require.Len(t, theirs.Signature, 65)
			// r || s 必须逐字节一致（v 的表示方式可能不同）
			assert.Equal(t, theirs.Signature[:64], ourSig[:64])

			data, err := OrderDataFromSigned(ours)
			require.NoError(t, err)
			hash, err := OrderHash(types.ChainPolygon, testExchange, data)
			require.NoError(t, err)
			addr, err := RecoverAddress(hash, theirs.Signature)
			require.NoError(t, err)
			assert.Equal(t, testAddress, addr.Hex())
		})
	}
}
