package signing

import (
	"crypto/rand"
	"math/big"
	"time"
)

// Clock 时间来源
type Clock interface {
	Now() time.Time
}

// ClockFunc 函数适配 Clock
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// SystemClock 系统时钟
var SystemClock Clock = ClockFunc(time.Now)

// SaltFunc salt 生成函数
type SaltFunc func() (int64, error)

// maxSalt salt 上限 2^53，保证 JSON 数字在各语言中无损
var maxSalt = new(big.Int).Lsh(big.NewInt(1), 53)

// RandomSalt 从 crypto/rand 取 [0, 2^53) 内的均匀随机数
func RandomSalt() (int64, error) {
	n, err := rand.Int(rand.Reader, maxSalt)
	if err != nil {
		return 0, err
	}
	return n.Int64(), nil
}
