package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

// Run with -race: producers, flushing workers and a reader polling the
// sink all touch the pool at once.
func TestPoolRaceCondition(t *testing.T) {
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

	done := make(chan struct{})
	var reader sync.WaitGroup
	reader.Add(1)
	go func() {
		defer reader.Done()
		for {
			select {
			case <-done:
				return
			default:
				_ = conn.SentRows()
				_ = conn.Batches()
				_ = pool.QueueDepth()
				time.Sleep(time.Millisecond)
			}
		}
	}()

	var wg sync.WaitGroup
	producers := 10
	eventsPerProducer := 100
	for i := 0; i < producers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < eventsPerProducer; j++ {
				pool.Enqueue(event(j))
				if j%10 == 0 {
					time.Sleep(time.Millisecond)
				}
			}
		}()
	}

	wg.Wait()
	pool.Stop()
	close(done)
	reader.Wait()

	if got := len(conn.SentRows()); got != producers*eventsPerProducer {
		t.Errorf("sent rows = %d, want %d", got, producers*eventsPerProducer)
	}
}
