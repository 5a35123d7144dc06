package signing

import (
	"context"
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	"github.com/betbot/clobauth/clob/types"
)

var clobAuthTypes = apitypes.Types{
	"EIP712Domain": {
		{Name: "name", Type: "string"},
		{Name: "version", Type: "string"},
		{Name: "chainId", Type: "uint256"},
	},
	"ClobAuth": {
		{Name: "address", Type: "address"},
		{Name: "timestamp", Type: "string"},
		{Name: "nonce", Type: "uint256"},
		{Name: "message", Type: "string"},
	},
}

// 字段顺序决定 typehash，不能调整
var orderTypes = apitypes.Types{
	"EIP712Domain": {
		{Name: "name", Type: "string"},
		{Name: "version", Type: "string"},
		{Name: "chainId", Type: "uint256"},
		{Name: "verifyingContract", Type: "address"},
	},
	"Order": {
		{Name: "salt", Type: "uint256"},
		{Name: "maker", Type: "address"},
		{Name: "signer", Type: "address"},
		{Name: "taker", Type: "address"},
		{Name: "tokenId", Type: "uint256"},
		{Name: "makerAmount", Type: "uint256"},
		{Name: "takerAmount", Type: "uint256"},
		{Name: "expiration", Type: "uint256"},
		{Name: "nonce", Type: "uint256"},
		{Name: "feeRateBps", Type: "uint256"},
		{Name: "side", Type: "uint8"},
		{Name: "signatureType", Type: "uint8"},
	},
}

// ClobAuthTypedData 构建 L1 认证的 EIP712 结构（域中没有 verifyingContract）
func ClobAuthTypedData(address common.Address, chainID types.Chain, timestamp int64, nonce int64) apitypes.TypedData {
	return apitypes.TypedData{
		Types:       clobAuthTypes,
		PrimaryType: "ClobAuth",
		Domain: apitypes.TypedDataDomain{
			Name:    ClobDomainName,
			Version: ClobVersion,
			ChainId: math.NewHexOrDecimal256(int64(chainID)),
		},
		Message: apitypes.TypedDataMessage{
			"address":   address.Hex(),
			"timestamp": strconv.FormatInt(timestamp, 10),
			"nonce":     big.NewInt(nonce),
			"message":   MsgToSign,
		},
	}
}

// ClobAuthHash 计算 L1 认证消息的 EIP712 摘要
func ClobAuthHash(address common.Address, chainID types.Chain, timestamp int64, nonce int64) ([]byte, error) {
	hash, _, err := apitypes.TypedDataAndHash(ClobAuthTypedData(address, chainID, timestamp, nonce))
	if err != nil {
		return nil, &types.SigningError{Op: "clob auth hash", Err: err}
	}
	return hash, nil
}

// BuildClobEip712Signature 构建 Polymarket CLOB EIP712 签名
func BuildClobEip712Signature(
	ctx context.Context,
	signer Signer,
	chainID types.Chain,
	timestamp int64,
	nonce int64,
) (string, error) {
	if nonce < 0 {
		return "", &types.ValidationError{Field: "nonce", Reason: "must be non-negative"}
	}
	hash, err := ClobAuthHash(signer.Address(), chainID, timestamp, nonce)
	if err != nil {
		return "", err
	}
	sig, err := signer.SignHash(ctx, hash)
	if err != nil {
		return "", err
	}
	return encodeSignature(sig), nil
}

// OrderData 订单数据（用于签名）
type OrderData struct {
	Salt          int64
	Maker         common.Address
	Signer        common.Address
	Taker         common.Address
	TokenID       *big.Int
	MakerAmount   *big.Int
	TakerAmount   *big.Int
	Expiration    *big.Int
	Nonce         *big.Int
	FeeRateBps    *big.Int
	Side          types.Side
	SignatureType types.SignatureType
}

// OrderTypedData 构建订单的 EIP712 结构，exchange 为 verifyingContract
func OrderTypedData(chainID types.Chain, exchange common.Address, o *OrderData) apitypes.TypedData {
	return apitypes.TypedData{
		Types:       orderTypes,
		PrimaryType: "Order",
		Domain: apitypes.TypedDataDomain{
			Name:              ExchangeDomainName,
			Version:           ExchangeVersion,
			ChainId:           math.NewHexOrDecimal256(int64(chainID)),
			VerifyingContract: exchange.Hex(),
		},
		Message: apitypes.TypedDataMessage{
			"salt":          big.NewInt(o.Salt),
			"maker":         o.Maker.Hex(),
			"signer":        o.Signer.Hex(),
			"taker":         o.Taker.Hex(),
			"tokenId":       o.TokenID,
			"makerAmount":   o.MakerAmount,
			"takerAmount":   o.TakerAmount,
			"expiration":    o.Expiration,
			"nonce":         o.Nonce,
			"feeRateBps":    o.FeeRateBps,
			"side":          big.NewInt(int64(o.Side.Uint8())),
			"signatureType": big.NewInt(int64(o.SignatureType)),
		},
	}
}

// OrderHash 计算订单的 EIP712 摘要
func OrderHash(chainID types.Chain, exchange common.Address, o *OrderData) ([]byte, error) {
	hash, _, err := apitypes.TypedDataAndHash(OrderTypedData(chainID, exchange, o))
	if err != nil {
		return nil, &types.SigningError{Op: "order hash", Err: err}
	}
	return hash, nil
}
