package client

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/betbot/clobauth/clob/types"
)

// Mode 当前认证层级
func (c *Client) Mode() types.AuthLevel {
	if c.signer == nil {
		return types.AuthL0
	}
	if c.creds.Load() == nil {
		return types.AuthL1
	}
	return types.AuthL2
}

// assertL1 需要签名者
func (c *Client) assertL1() error {
	if c.signer == nil {
		return types.ErrNoSigner
	}
	return nil
}

// assertL2 需要签名者和 API 凭证，返回本次调用使用的凭证快照
func (c *Client) assertL2() (common.Address, *types.ApiKeyCreds, error) {
	if err := c.assertL1(); err != nil {
		return common.Address{}, nil, err
	}
	creds := c.creds.Load()
	if creds == nil {
		return common.Address{}, nil, types.ErrNoCreds
	}
	return c.signer.Address(), creds, nil
}

// Address 钱包地址（签名者地址）
func (c *Client) Address() (common.Address, error) {
	if c.signer == nil {
		return common.Address{}, types.ErrNoSigner
	}
	return c.signer.Address(), nil
}

// SetCreds 安装 API 凭证；nil 表示移除。传入的值会被复制，之后修改不影响客户端
func (c *Client) SetCreds(creds *types.ApiKeyCreds) error {
	if creds == nil {
		c.creds.Store(nil)
		return nil
	}
	if !creds.Complete() {
		return &types.ValidationError{Field: "creds", Reason: "key, secret and passphrase are all required"}
	}
	cp := *creds
	c.creds.Store(&cp)
	return nil
}

// Creds 当前安装的 API 凭证副本，未安装时为 nil
func (c *Client) Creds() *types.ApiKeyCreds {
	cur := c.creds.Load()
	if cur == nil {
		return nil
	}
	cp := *cur
	return &cp
}
