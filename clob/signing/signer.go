package signing

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	hdwallet "github.com/miguelmota/go-ethereum-hdwallet"

	"github.com/betbot/clobauth/clob/types"
)

// Signer 钱包签名能力。私钥不出实现边界，调用方只能拿到地址和签名。
//
// SignHash 对 32 字节摘要做确定性 secp256k1 签名（RFC 6979），
// 返回 65 字节 r || s || v，v 为 27 或 28。
type Signer interface {
	Address() common.Address
	SignHash(ctx context.Context, hash []byte) ([]byte, error)
}

// PrivateKeySigner 持有原始私钥的本地签名者
type PrivateKeySigner struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

// NewPrivateKeySigner 从十六进制私钥创建签名者（可带 0x 前缀）
func NewPrivateKeySigner(hexKey string) (*PrivateKeySigner, error) {
	hexKey = strings.TrimPrefix(strings.TrimSpace(hexKey), "0x")
	if hexKey == "" {
		return nil, &types.ValidationError{Field: "private_key", Reason: "empty"}
	}
	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		// 不回显原始输入
		return nil, &types.ValidationError{Field: "private_key", Reason: "not a valid secp256k1 key"}
	}
	return NewPrivateKeySignerFromECDSA(key), nil
}

// NewPrivateKeySignerFromECDSA 包装已解析的私钥
func NewPrivateKeySignerFromECDSA(key *ecdsa.PrivateKey) *PrivateKeySigner {
	return &PrivateKeySigner{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
	}
}

// NewSignerFromMnemonic 从助记词派生签名者，path 为空时使用 DefaultDerivationPath
func NewSignerFromMnemonic(mnemonic, path string) (*PrivateKeySigner, error) {
	mnemonic = strings.TrimSpace(mnemonic)
	if mnemonic == "" {
		return nil, &types.ValidationError{Field: "mnemonic", Reason: "empty"}
	}
	if strings.TrimSpace(path) == "" {
		path = DefaultDerivationPath
	}

	w, err := hdwallet.NewFromMnemonic(mnemonic)
	if err != nil {
		return nil, &types.ValidationError{Field: "mnemonic", Reason: err.Error()}
	}
	dp, err := hdwallet.ParseDerivationPath(path)
	if err != nil {
		return nil, &types.ValidationError{Field: "derivation_path", Reason: err.Error()}
	}
	acct, err := w.Derive(dp, false)
	if err != nil {
		return nil, &types.SigningError{Op: "derive", Err: err}
	}
	key, err := w.PrivateKey(acct)
	if err != nil {
		return nil, &types.SigningError{Op: "derive", Err: err}
	}
	return NewPrivateKeySignerFromECDSA(key), nil
}

// Address 钱包地址
func (s *PrivateKeySigner) Address() common.Address {
	return s.address
}

// SignHash 签名 32 字节摘要
func (s *PrivateKeySigner) SignHash(_ context.Context, hash []byte) ([]byte, error) {
	if len(hash) != common.HashLength {
		return nil, &types.SigningError{Op: "sign", Err: fmt.Errorf("digest must be %d bytes, got %d", common.HashLength, len(hash))}
	}
	sig, err := crypto.Sign(hash, s.key)
	if err != nil {
		return nil, &types.SigningError{Op: "sign", Err: err}
	}
	sig[64] += 27
	return sig, nil
}

// String 只暴露地址
func (s *PrivateKeySigner) String() string {
	return fmt.Sprintf("PrivateKeySigner(%s)", s.address.Hex())
}

// SignMessage EIP-191 个人消息签名
func SignMessage(ctx context.Context, signer Signer, message []byte) (string, error) {
	sig, err := signer.SignHash(ctx, accounts.TextHash(message))
	if err != nil {
		return "", err
	}
	return encodeSignature(sig), nil
}

// RecoverAddress 从摘要和签名中恢复地址，接受 v 为 0/1 或 27/28
func RecoverAddress(hash []byte, sig []byte) (common.Address, error) {
	if len(sig) != crypto.SignatureLength {
		return common.Address{}, fmt.Errorf("signature must be %d bytes, got %d", crypto.SignatureLength, len(sig))
	}
	normalized := make([]byte, len(sig))
	copy(normalized, sig)
	if normalized[64] >= 27 {
		normalized[64] -= 27
	}
	pub, err := crypto.SigToPub(hash, normalized)
	if err != nil {
		return common.Address{}, err
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// DecodeSignature 解析 0x 前缀的十六进制签名
func DecodeSignature(s string) ([]byte, error) {
	if !strings.HasPrefix(s, "0x") {
		return nil, fmt.Errorf("signature must be 0x-prefixed")
	}
	b := common.FromHex(s)
	if len(b) != crypto.SignatureLength {
		return nil, fmt.Errorf("signature must be %d bytes, got %d", crypto.SignatureLength, len(b))
	}
	return b, nil
}

func encodeSignature(sig []byte) string {
	return "0x" + common.Bytes2Hex(sig)
}

// checkSignature 校验外部签名者返回的签名格式，并确认能恢复出签名者地址
func checkSignature(hash []byte, sig []byte, want common.Address) error {
	if len(sig) != crypto.SignatureLength {
		return fmt.Errorf("signer returned %d bytes", len(sig))
	}
	if v := sig[64]; v != 27 && v != 28 {
		return fmt.Errorf("signer returned v=%d", v)
	}
	got, err := RecoverAddress(hash, sig)
	if err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("signature recovers to %s, want %s", got.Hex(), want.Hex())
	}
	return nil
}
