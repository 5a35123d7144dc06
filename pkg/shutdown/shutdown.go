package shutdown

import (
	"context"
	"sync"

	"github.com/betbot/clobauth/pkg/logger"
)

// Handler 关闭回调；应在 ctx 到期前返回
type Handler func(ctx context.Context) error

type entry struct {
	name string
	fn   Handler
}

// Manager 优雅关闭管理器
type Manager struct {
	callbacks []entry
	mu        sync.Mutex
}

// NewManager 创建新的关闭管理器
func NewManager() *Manager {
	return &Manager{}
}

// OnShutdown 注册关闭回调
func (m *Manager) OnShutdown(name string, handler Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks = append(m.callbacks, entry{name: name, fn: handler})
}

// Shutdown 并发执行所有回调，等待全部完成或 ctx 超时，返回出错的回调数量
func (m *Manager) Shutdown(ctx context.Context) int {
	m.mu.Lock()
	callbacks := m.callbacks
	m.callbacks = nil
	m.mu.Unlock()

	if len(callbacks) == 0 {
		return 0
	}
	log := logger.WithComponent("shutdown")
	log.Infof("开始优雅关闭，共 %d 个回调", len(callbacks))

	var (
		wg     sync.WaitGroup
		failMu sync.Mutex
		failed int
	)
	for _, cb := range callbacks {
		wg.Add(1)
		go func(e entry) {
			defer wg.Done()
			if err := e.fn(ctx); err != nil {
				log.WithError(err).WithField("handler", e.name).Warn("关闭回调失败")
				failMu.Lock()
				failed++
				failMu.Unlock()
			}
		}(cb)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info("所有关闭回调已完成")
	case <-ctx.Done():
		log.Warnf("关闭超时: %v", ctx.Err())
		failMu.Lock()
		defer failMu.Unlock()
		return failed + 1
	}
	failMu.Lock()
	defer failMu.Unlock()
	return failed
}
