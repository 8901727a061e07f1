package rates

import (
	"context"
	"sync"
	"time"
)

// Memo caches another Source's result for ttl. Concurrent callers share
// one refresh.
type Memo struct {
	src Source
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	rates   Rates
	fetched time.Time
}

func NewMemo(src Source, ttl time.Duration) *Memo {
	return &Memo{src: src, ttl: ttl, now: time.Now}
}

func (m *Memo) Rates(ctx context.Context) (Rates, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.rates != nil && m.now().Sub(m.fetched) < m.ttl {
		return m.rates, nil
	}

	r, err := m.src.Rates(ctx)
	if err != nil {
		if m.rates != nil {
			return m.rates, nil
		}
		return nil, err
	}
	m.rates = r
	m.fetched = m.now()
	return r, nil
}

// Invalidate forces the next call to refresh.
func (m *Memo) Invalidate() {
	m.mu.Lock()
	m.rates = nil
	m.mu.Unlock()
}
