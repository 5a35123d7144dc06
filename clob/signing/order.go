package signing

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/betbot/clobauth/clob/types"
)

var maxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// ExchangeAddresses 订单签名使用的 verifyingContract
type ExchangeAddresses struct {
	Exchange        common.Address
	NegRiskExchange common.Address
}

// OrderSigner 构建并签名订单
//
// 签名类型和资金方在构造时确定；并发调用互不影响，每笔订单独立取 salt。
type OrderSigner struct {
	signer        Signer
	chainID       types.Chain
	exchanges     ExchangeAddresses
	signatureType types.SignatureType
	funder        common.Address
	salt          SaltFunc
}

// OrderSignerOption 构造选项
type OrderSignerOption func(*OrderSigner)

// WithSignatureType 设置签名类型
func WithSignatureType(t types.SignatureType) OrderSignerOption {
	return func(s *OrderSigner) { s.signatureType = t }
}

// WithFunder 设置资金方地址（代理钱包地址）
func WithFunder(funder common.Address) OrderSignerOption {
	return func(s *OrderSigner) { s.funder = funder }
}

// WithSaltFunc 替换 salt 来源
func WithSaltFunc(f SaltFunc) OrderSignerOption {
	return func(s *OrderSigner) { s.salt = f }
}

// NewOrderSigner 创建订单签名器
func NewOrderSigner(signer Signer, chainID types.Chain, exchanges ExchangeAddresses, opts ...OrderSignerOption) (*OrderSigner, error) {
	if signer == nil {
		return nil, types.ErrNoSigner
	}
	s := &OrderSigner{
		signer:        signer,
		chainID:       chainID,
		exchanges:     exchanges,
		signatureType: types.SignatureTypeEOA,
		salt:          RandomSalt,
	}
	for _, opt := range opts {
		opt(s)
	}

	switch s.signatureType {
	case types.SignatureTypeEOA:
	case types.SignatureTypePolyProxy, types.SignatureTypePolyGnosisSafe:
		if s.funder == (common.Address{}) {
			return nil, &types.ValidationError{Field: "funder", Reason: fmt.Sprintf("required for %s", s.signatureType)}
		}
	default:
		return nil, &types.ValidationError{Field: "signature_type", Reason: fmt.Sprintf("unsupported %s", s.signatureType)}
	}
	if s.exchanges.Exchange == (common.Address{}) {
		return nil, &types.ValidationError{Field: "exchange", Reason: "exchange contract address is required"}
	}
	return s, nil
}

// Address 签名者地址
func (s *OrderSigner) Address() common.Address {
	return s.signer.Address()
}

// SignatureType 签名类型
func (s *OrderSigner) SignatureType() types.SignatureType {
	return s.signatureType
}

// Maker 返回订单的 maker：EOA 为钱包本身，代理钱包为资金方
func (s *OrderSigner) Maker() common.Address {
	if s.signatureType.UsesFunder() {
		return s.funder
	}
	return s.signer.Address()
}

// SignOrder 校验参数、计算金额并签名限价单
func (s *OrderSigner) SignOrder(ctx context.Context, args *types.OrderArgs, opts types.CreateOrderOptions) (*types.SignedOrder, error) {
	if args == nil {
		return nil, &types.ValidationError{Field: "order", Reason: "nil"}
	}
	tokenID, err := ParseTokenID(args.TokenID)
	if err != nil {
		return nil, err
	}
	makerAmt, takerAmt, err := OrderAmounts(args.Side, args.Size, args.Price, opts.TickSize)
	if err != nil {
		return nil, err
	}
	return s.sign(ctx, &orderFields{
		tokenID:    tokenID,
		side:       args.Side,
		maker:      makerAmt,
		taker:      takerAmt,
		feeRateBps: args.FeeRateBps,
		nonce:      args.Nonce,
		expiration: args.Expiration,
		takerAddr:  args.Taker,
		negRisk:    opts.NegRisk,
	})
}

// SignMarketOrder 签名市价单（expiration 固定为 0）
func (s *OrderSigner) SignMarketOrder(ctx context.Context, args *types.MarketOrderArgs, opts types.CreateOrderOptions) (*types.SignedOrder, error) {
	if args == nil {
		return nil, &types.ValidationError{Field: "order", Reason: "nil"}
	}
	switch args.OrderType {
	case "", types.OrderTypeFOK, types.OrderTypeFAK:
	default:
		return nil, &types.ValidationError{Field: "order_type", Reason: fmt.Sprintf("market orders support FOK or FAK, got %s", args.OrderType)}
	}
	tokenID, err := ParseTokenID(args.TokenID)
	if err != nil {
		return nil, err
	}
	makerAmt, takerAmt, err := MarketOrderAmounts(args.Side, args.Amount, args.Price, opts.TickSize)
	if err != nil {
		return nil, err
	}
	return s.sign(ctx, &orderFields{
		tokenID:    tokenID,
		side:       args.Side,
		maker:      makerAmt,
		taker:      takerAmt,
		feeRateBps: args.FeeRateBps,
		nonce:      args.Nonce,
		takerAddr:  args.Taker,
		negRisk:    opts.NegRisk,
	})
}

type orderFields struct {
	tokenID    *big.Int
	side       types.Side
	maker      *big.Int
	taker      *big.Int
	feeRateBps *int
	nonce      *int64
	expiration *int64
	takerAddr  *string
	negRisk    bool
}

func (s *OrderSigner) sign(ctx context.Context, f *orderFields) (*types.SignedOrder, error) {
	feeRateBps := big.NewInt(0)
	if f.feeRateBps != nil {
		if *f.feeRateBps < 0 {
			return nil, &types.ValidationError{Field: "fee_rate_bps", Reason: "must be non-negative"}
		}
		feeRateBps = big.NewInt(int64(*f.feeRateBps))
	}
	nonce := big.NewInt(0)
	if f.nonce != nil {
		if *f.nonce < 0 {
			return nil, &types.ValidationError{Field: "nonce", Reason: "must be non-negative"}
		}
		nonce = big.NewInt(*f.nonce)
	}
	expiration := big.NewInt(0)
	if f.expiration != nil {
		if *f.expiration < 0 {
			return nil, &types.ValidationError{Field: "expiration", Reason: "must be non-negative"}
		}
		expiration = big.NewInt(*f.expiration)
	}
	taker := common.HexToAddress(ZeroAddress)
	if f.takerAddr != nil && strings.TrimSpace(*f.takerAddr) != "" {
		if !common.IsHexAddress(*f.takerAddr) {
			return nil, &types.ValidationError{Field: "taker", Reason: fmt.Sprintf("invalid address %q", *f.takerAddr)}
		}
		taker = common.HexToAddress(*f.takerAddr)
	}

	exchange := s.exchanges.Exchange
	if f.negRisk {
		exchange = s.exchanges.NegRiskExchange
		if exchange == (common.Address{}) {
			return nil, &types.ValidationError{Field: "neg_risk", Reason: "neg risk exchange not configured for this chain"}
		}
	}

	salt, err := s.salt()
	if err != nil {
		return nil, &types.SigningError{Op: "salt", Err: err}
	}

	data := &OrderData{
		Salt:          salt,
		Maker:         s.Maker(),
		Signer:        s.signer.Address(),
		Taker:         taker,
		TokenID:       f.tokenID,
		MakerAmount:   f.maker,
		TakerAmount:   f.taker,
		Expiration:    expiration,
		Nonce:         nonce,
		FeeRateBps:    feeRateBps,
		Side:          f.side,
		SignatureType: s.signatureType,
	}
	hash, err := OrderHash(s.chainID, exchange, data)
	if err != nil {
		return nil, err
	}
	sig, err := s.signer.SignHash(ctx, hash)
	if err != nil {
		return nil, err
	}

	return &types.SignedOrder{
		Salt:          salt,
		Maker:         data.Maker.Hex(),
		Signer:        data.Signer.Hex(),
		Taker:         data.Taker.Hex(),
		TokenID:       data.TokenID.String(),
		MakerAmount:   data.MakerAmount.String(),
		TakerAmount:   data.TakerAmount.String(),
		Expiration:    data.Expiration.String(),
		Nonce:         data.Nonce.String(),
		FeeRateBps:    data.FeeRateBps.String(),
		Side:          data.Side,
		SignatureType: int(data.SignatureType),
		Signature:     encodeSignature(sig),
	}, nil
}

// ParseTokenID 解析 token id（十进制或 0x 十六进制），必须是 uint256
func ParseTokenID(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, &types.ValidationError{Field: "token_id", Reason: "empty"}
	}
	id := new(big.Int)
	var ok bool
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		_, ok = id.SetString(s[2:], 16)
	} else {
		_, ok = id.SetString(s, 10)
	}
	if !ok {
		return nil, &types.ValidationError{Field: "token_id", Reason: fmt.Sprintf("%q is not an integer", s)}
	}
	if id.Sign() < 0 || id.Cmp(maxUint256) > 0 {
		return nil, &types.ValidationError{Field: "token_id", Reason: "out of uint256 range"}
	}
	return id, nil
}

// OrderDataFromSigned 从已签名订单还原签名数据，用于校验
func OrderDataFromSigned(o *types.SignedOrder) (*OrderData, error) {
	parse := func(field, v string) (*big.Int, error) {
		n, ok := new(big.Int).SetString(v, 10)
		if !ok {
			return nil, &types.ValidationError{Field: field, Reason: fmt.Sprintf("%q is not an integer", v)}
		}
		return n, nil
	}
	tokenID, err := ParseTokenID(o.TokenID)
	if err != nil {
		return nil, err
	}
	d := &OrderData{
		Salt:          o.Salt,
		Maker:         common.HexToAddress(o.Maker),
		Signer:        common.HexToAddress(o.Signer),
		Taker:         common.HexToAddress(o.Taker),
		TokenID:       tokenID,
		Side:          o.Side,
		SignatureType: types.SignatureType(o.SignatureType),
	}
	if d.MakerAmount, err = parse("maker_amount", o.MakerAmount); err != nil {
		return nil, err
	}
	if d.TakerAmount, err = parse("taker_amount", o.TakerAmount); err != nil {
		return nil, err
	}
	if d.Expiration, err = parse("expiration", o.Expiration); err != nil {
		return nil, err
	}
	if d.Nonce, err = parse("nonce", o.Nonce); err != nil {
		return nil, err
	}
	if d.FeeRateBps, err = parse("fee_rate_bps", o.FeeRateBps); err != nil {
		return nil, err
	}
	return d, nil
}

// VerifyOrder 校验订单签名是否由 Signer 字段的地址产生
func VerifyOrder(chainID types.Chain, exchange common.Address, o *types.SignedOrder) error {
	data, err := OrderDataFromSigned(o)
	if err != nil {
		return err
	}
	hash, err := OrderHash(chainID, exchange, data)
	if err != nil {
		return err
	}
	sig, err := DecodeSignature(o.Signature)
	if err != nil {
		return &types.SigningError{Op: "verify", Err: err}
	}
	if err := checkSignature(hash, sig, data.Signer); err != nil {
		return &types.SigningError{Op: "verify", Err: err}
	}
	return nil
}
