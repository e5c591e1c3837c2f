package ratelimit

import (
	"context"
	"sync"
	"time"
)

type window struct {
	start time.Time
	count int64
	size  time.Duration
}

// MemoryLimiter хранит окна в памяти процесса. Подходит для одного
// экземпляра и как запасной вариант при недоступности redis; счётчики
// не переживают перезапуск.
type MemoryLimiter struct {
	now             func() time.Time
	cleanupInterval time.Duration

	mu      sync.Mutex
	windows map[string]*window
	done    chan struct{}
	closed  bool
}

// NewMemoryLimiter создаёт лимитер и запускает фоновую очистку истёкших окон.
func NewMemoryLimiter(cleanupInterval time.Duration) *MemoryLimiter {
	return newMemoryLimiter(cleanupInterval, time.Now)
}

func newMemoryLimiter(cleanupInterval time.Duration, now func() time.Time) *MemoryLimiter {
	m := &MemoryLimiter{
		now:             now,
		cleanupInterval: cleanupInterval,
		windows:         make(map[string]*window),
		done:            make(chan struct{}),
	}
	if cleanupInterval > 0 {
		go m.cleanup()
	}
	return m
}

// Allow увеличивает счётчик key в текущем окне.
func (m *MemoryLimiter) Allow(_ context.Context, key string, limit int, size time.Duration) (Info, error) {
	now := m.now()
	start := WindowStart(now, size)

	m.mu.Lock()
	w, ok := m.windows[key]
	if !ok || !w.start.Equal(start) {
		// первый инкремент в окне
		w = &window{start: start, size: size}
		m.windows[key] = w
	}
	w.count++
	count := w.count
	m.mu.Unlock()

	return newInfo(count, limit, start, now, size), nil
}

// Close останавливает фоновую очистку.
func (m *MemoryLimiter) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.closed = true
		close(m.done)
	}
}

func (m *MemoryLimiter) cleanup() {
	ticker := time.NewTicker(m.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.evictExpired()
		}
	}
}

func (m *MemoryLimiter) evictExpired() {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, w := range m.windows {
		if !now.Before(w.start.Add(w.size)) {
			delete(m.windows, key)
		}
	}
}
