// Package credstore 在本地加密 badger 库中保存 L2 API 凭证，按链和钱包地址区分。
package credstore

import (
	"fmt"
	"strings"
	"time"

	"github.com/betbot/clobauth/clob/types"
	"github.com/betbot/clobauth/pkg/secretstore"
	"github.com/ethereum/go-ethereum/common"
)

const keyPrefix = "clob/creds/"

// Record 持久化的凭证
type Record struct {
	Address   string            `json:"address"`
	Chain     types.Chain       `json:"chain"`
	Creds     types.ApiKeyCreds `json:"creds"`
	CreatedAt time.Time         `json:"created_at"`
}

// Store 凭证库
type Store struct {
	kv *secretstore.Store
}

// Open 打开凭证库；masterKey 为 32 字节（hex 或 base64）
func Open(path, masterKey string) (*Store, error) {
	key, err := secretstore.ParseKey(masterKey)
	if err != nil {
		return nil, fmt.Errorf("credstore: master key: %w", err)
	}
	if key == nil {
		return nil, fmt.Errorf("credstore: master key is required")
	}
	kv, err := secretstore.Open(secretstore.OpenOptions{Path: path, EncryptionKey: key})
	if err != nil {
		return nil, err
	}
	return &Store{kv: kv}, nil
}

// Close 关闭底层数据库
func (s *Store) Close() error {
	return s.kv.Close()
}

func recordKey(chain types.Chain, address common.Address) string {
	return fmt.Sprintf("%s%d/%s", keyPrefix, int64(chain), strings.ToLower(address.Hex()))
}

// Save 保存凭证，已存在则覆盖
func (s *Store) Save(chain types.Chain, address common.Address, creds *types.ApiKeyCreds) error {
	if !creds.Complete() {
		return types.ErrNoCreds
	}
	rec := Record{
		Address:   address.Hex(),
		Chain:     chain,
		Creds:     *creds,
		CreatedAt: time.Now().UTC(),
	}
	return s.kv.SetJSON(recordKey(chain, address), rec)
}

// Load 读取凭证，不存在时返回 nil, nil
func (s *Store) Load(chain types.Chain, address common.Address) (*types.ApiKeyCreds, error) {
	var rec Record
	ok, err := s.kv.GetJSON(recordKey(chain, address), &rec)
	if err != nil || !ok {
		return nil, err
	}
	creds := rec.Creds
	if !creds.Complete() {
		return nil, fmt.Errorf("credstore: incomplete record for %s", address.Hex())
	}
	return &creds, nil
}

// Delete 删除凭证
func (s *Store) Delete(chain types.Chain, address common.Address) error {
	return s.kv.Delete(recordKey(chain, address))
}

// List 列出某条链上保存过凭证的地址
func (s *Store) List(chain types.Chain) ([]common.Address, error) {
	keys, err := s.kv.Keys(fmt.Sprintf("%s%d/", keyPrefix, int64(chain)))
	if err != nil {
		return nil, err
	}
	out := make([]common.Address, 0, len(keys))
	for _, k := range keys {
		out = append(out, common.HexToAddress(k[strings.LastIndex(k, "/")+1:]))
	}
	return out, nil
}
