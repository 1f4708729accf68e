package worker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cornerstats/fight-predictor/internal/models"
)

func event(i int) *models.PredictionEvent {
	return &models.PredictionEvent{
		BatchID:     uuid.New(),
		ArtifactID:  "artifact-1",
		RedFighter:  fmt.Sprintf("Red %d", i),
		BlueFighter: fmt.Sprintf("Blue %d", i),
		WeightClass: "Lightweight",
		Winner:      "Red",
		Confidence:  0.7,
		ProbRed:     0.7,
		ProbBlue:    0.3,
		ServedAt:    time.Now(),
	}
}

func TestEnqueueFull(t *testing.T) {
	pool := NewPool(PoolConfig{QueueSize: 1, Logger: zap.NewNop()})
	defer pool.cancel()

	// Fill the queue
	if !pool.Enqueue(event(1)) {
		t.Fatal("Failed to enqueue first event")
	}

	// Try to enqueue second event, it should return false immediately
	start := time.Now()
	enqueued := pool.Enqueue(event(2))
	duration := time.Since(start)

	if enqueued {
		t.Error("Enqueue should have returned false when queue is full")
	}
	if duration > 10*time.Millisecond {
		t.Errorf("Enqueue took too long (%v), expected immediate return", duration)
	}
	if pool.QueueDepth() != 1 {
		t.Errorf("QueueDepth = %d, want 1", pool.QueueDepth())
	}
}

func TestPoolFlushesBySizeAndOnStop(t *testing.T) {
	conn := &MockClickHouseConn{}
	pool := NewPool(PoolConfig{
		WorkerCount:   1,
		QueueSize:     100,
		BatchSize:     4,
		FlushInterval: time.Hour,
		ClickHouse:    conn,
		Logger:        zap.NewNop(),
	})
	pool.Start(context.Background())

	for i := 0; i < 10; i++ {
		if !pool.Enqueue(event(i)) {
			t.Fatalf("enqueue %d rejected", i)
		}
	}
	pool.Stop()

	rows := conn.SentRows()
	if len(rows) != 10 {
		t.Fatalf("sent rows = %d, want 10", len(rows))
	}
	if conn.Batches() != 3 {
		t.Errorf("batches = %d, want 3 (4+4+2)", conn.Batches())
	}
	if rows[0][3] != "Red 0" || rows[9][4] != "Blue 9" {
		t.Errorf("row order: %v ... %v", rows[0], rows[9])
	}
	if pool.Enqueue(event(11)) {
		t.Error("stopped pool accepted an event")
	}
}

func TestPoolFlushesOnInterval(t *testing.T) {
	conn := &MockClickHouseConn{}
	pool := NewPool(PoolConfig{
		WorkerCount:   1,
		BatchSize:     100,
		FlushInterval: 10 * time.Millisecond,
		ClickHouse:    conn,
		Logger:        zap.NewNop(),
	})
	pool.Start(context.Background())
	defer pool.Stop()

	pool.Enqueue(event(1))
	deadline := time.Now().Add(2 * time.Second)
	for len(conn.SentRows()) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("interval flush never happened")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestPoolSendFailureDoesNotStopWorkers(t *testing.T) {
	conn := &MockClickHouseConn{SendErr: errors.New("clickhouse unavailable")}
	pool := NewPool(PoolConfig{WorkerCount: 2, BatchSize: 1, ClickHouse: conn, Logger: zap.NewNop()})
	pool.Start(context.Background())
	for i := 0; i < 5; i++ {
		pool.Enqueue(event(i))
	}
	pool.Stop()
	if conn.Batches() != 5 || len(conn.SentRows()) != 0 {
		t.Errorf("batches = %d, sent = %d", conn.Batches(), len(conn.SentRows()))
	}
}

func TestPoolConcurrentEnqueue(t *testing.T) {
	conn := &MockClickHouseConn{}
	pool := NewPool(PoolConfig{
		WorkerCount:   2,
		QueueSize:     1000,
		BatchSize:     10,
		FlushInterval: 10 * time.Millisecond,
		ClickHouse:    conn,
		Logger:        zap.NewNop(),
	})
	pool.Start(context.Background())

	var wg sync.WaitGroup
	for g := 0; g < 10; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				pool.Enqueue(event(j))
			}
		}()
	}
	wg.Wait()
	pool.Stop()

	if got := len(conn.SentRows()); got != 500 {
		t.Errorf("sent rows = %d, want 500", got)
	}
}

func TestEnsureSchema(t *testing.T) {
	var ddl string
	conn := &MockClickHouseConn{ExecFunc: func(ctx context.Context, query string, args ...interface{}) error {
		ddl = query
		return nil
	}}
	pool := NewPool(PoolConfig{ClickHouse: conn, Logger: zap.NewNop()})
	if err := pool.EnsureSchema(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(ddl, "CREATE TABLE IF NOT EXISTS prediction_audit") {
		t.Errorf("ddl = %q", ddl)
	}
}

func TestSanitizeName(t *testing.T) {
	tests := map[string]string{
		"  Jon Jones ":     "Jon Jones",
		"Israel\tAdesanya": "IsraelAdesanya",
		"Zhang Weili\x00":  "Zhang Weili",
		"José Aldo":        "José Aldo",
	}
	for in, want := range tests {
		if got := sanitizeName(in); got != want {
			t.Errorf("sanitizeName(%q) = %q, want %q", in, got, want)
		}
	}
}
