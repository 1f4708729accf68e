package worker

import (
	"context"
	"sync"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

// MockClickHouseConn implements driver.Conn for testing
type MockClickHouseConn struct {
	driver.Conn
	ExecFunc func(ctx context.Context, query string, args ...interface{}) error
	SendErr  error

	mu      sync.Mutex
	batches []*MockBatch
}

func (m *MockClickHouseConn) Exec(ctx context.Context, query string, args ...interface{}) error {
	if m.ExecFunc != nil {
		return m.ExecFunc(ctx, query, args...)
	}
	return nil
}

func (m *MockClickHouseConn) PrepareBatch(ctx context.Context, query string, opts ...driver.PrepareBatchOption) (driver.Batch, error) {
	b := &MockBatch{sendErr: m.SendErr, mu: &m.mu}
	m.mu.Lock()
	m.batches = append(m.batches, b)
	m.mu.Unlock()
	return b, nil
}

// SentRows returns every row of every successfully sent batch
func (m *MockClickHouseConn) SentRows() [][]interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out [][]interface{}
	for _, b := range m.batches {
		if b.sent {
			out = append(out, b.rows...)
		}
	}
	return out
}

// Batches returns how many batches were prepared
func (m *MockClickHouseConn) Batches() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.batches)
}

// MockBatch records appended rows. It shares the parent connection's mutex
// so SentRows can read it while workers are still appending.
type MockBatch struct {
	driver.Batch
	mu      *sync.Mutex
	rows    [][]interface{}
	sent    bool
	sendErr error
}

func (m *MockBatch) Append(v ...interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, v)
	return nil
}

func (m *MockBatch) Send() error {
	if m.sendErr != nil {
		return m.sendErr
	}
	m.mu.Lock()
	m.sent = true
	m.mu.Unlock()
	return nil
}

func (m *MockBatch) IsSent() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sent
}

func (m *MockBatch) Rows() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

func (m *MockBatch) Abort() error { return nil }
