package signing

import (
	"context"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"github.com/betbot/clobauth/clob/types"
)

// 远程签名服务协议（见 internal/signerd）
const (
	RemotePathAddress = "/v1/address"
	RemotePathSign    = "/v1/sign"
)

// RemoteSignRequest POST /v1/sign 请求体
type RemoteSignRequest struct {
	Hash string `json:"hash"`
}

// RemoteSignResponse POST /v1/sign 响应体
type RemoteSignResponse struct {
	Signature string `json:"signature"`
}

// RemoteAddressResponse GET /v1/address 响应体
type RemoteAddressResponse struct {
	Address string `json:"address"`
}

// RemoteSigner 通过 HTTP 调用外部签名服务，私钥不进入本进程
type RemoteSigner struct {
	client  *resty.Client
	address common.Address
}

// NewRemoteSigner 连接签名服务并获取其地址
func NewRemoteSigner(ctx context.Context, baseURL, token string) (*RemoteSigner, error) {
	baseURL = strings.TrimSuffix(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, &types.ValidationError{Field: "remote_signer.url", Reason: "empty"}
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10 * time.Second).
		SetHeader("Accept", "application/json")
	if token != "" {
		client.SetAuthToken(token)
	}

	var out RemoteAddressResponse
	resp, err := client.R().SetContext(ctx).ForceContentType("application/json").SetResult(&out).Get(RemotePathAddress)
	if err != nil {
		return nil, &types.SigningError{Op: "remote address", Err: errors.Wrap(err, "request failed")}
	}
	if !resp.IsSuccess() {
		return nil, &types.SigningError{Op: "remote address", Err: errors.Errorf("http %d: %s", resp.StatusCode(), resp.String())}
	}
	if !common.IsHexAddress(out.Address) {
		return nil, &types.SigningError{Op: "remote address", Err: errors.Errorf("invalid address %q", out.Address)}
	}
	return &RemoteSigner{client: client, address: common.HexToAddress(out.Address)}, nil
}

// Address 远程钱包地址
func (s *RemoteSigner) Address() common.Address {
	return s.address
}

// SignHash 请求远程签名，并校验返回的签名确实来自该地址
func (s *RemoteSigner) SignHash(ctx context.Context, hash []byte) ([]byte, error) {
	if len(hash) != common.HashLength {
		return nil, &types.SigningError{Op: "remote sign", Err: errors.Errorf("digest must be %d bytes", common.HashLength)}
	}
	var out RemoteSignResponse
	resp, err := s.client.R().
		SetContext(ctx).
		ForceContentType("application/json").
		SetBody(RemoteSignRequest{Hash: "0x" + common.Bytes2Hex(hash)}).
		SetResult(&out).
		Post(RemotePathSign)
	if err != nil {
		return nil, &types.SigningError{Op: "remote sign", Err: errors.Wrap(err, "request failed")}
	}
	if !resp.IsSuccess() {
		return nil, &types.SigningError{Op: "remote sign", Err: errors.Errorf("http %d: %s", resp.StatusCode(), resp.String())}
	}
	sig, err := DecodeSignature(out.Signature)
	if err != nil {
		return nil, &types.SigningError{Op: "remote sign", Err: err}
	}
	if err := checkSignature(hash, sig, s.address); err != nil {
		return nil, &types.SigningError{Op: "remote sign", Err: err}
	}
	return sig, nil
}
