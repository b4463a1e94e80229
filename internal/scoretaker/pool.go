package scoretaker

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/speedcube/pkg/logger"
)

const progressInterval = time.Second

// poolResult counts job outcomes.
type poolResult struct {
	Done   int
	Failed int
	Errors []error
}

// runPool runs fn for jobs 0..n-1 on workers goroutines and reports
// progress about once a second.
func runPool(ctx context.Context, label string, workers, n int, fn func(ctx context.Context, i int) error) poolResult {
	var (
		done, failed int64
		mu           sync.Mutex
		errs         []error
		lastReport   atomic.Int64
	)
	log := logger.Get()

	jobs := make(chan int, workers*2)
	var wg sync.WaitGroup

	for w := 0; w < min(workers, n); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if ctx.Err() != nil {
					return
				}
				if err := fn(ctx, i); err != nil {
					atomic.AddInt64(&failed, 1)
					mu.Lock()
					errs = append(errs, err)
					mu.Unlock()
				} else {
					atomic.AddInt64(&done, 1)
				}

				now := time.Now().UnixNano()
				last := lastReport.Load()
				if now-last >= int64(progressInterval) && lastReport.CompareAndSwap(last, now) {
					log.Info(ctx, "progress",
						logger.String("stage", label),
						logger.Int("done", int(atomic.LoadInt64(&done))),
						logger.Int("failed", int(atomic.LoadInt64(&failed))),
						logger.Int("total", n),
					)
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i := 0; i < n; i++ {
			select {
			case <-ctx.Done():
				return
			case jobs <- i:
			}
		}
	}()

	wg.Wait()
	return poolResult{Done: int(done), Failed: int(failed), Errors: errs}
}
