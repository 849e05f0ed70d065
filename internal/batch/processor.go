// Package batch drives work over fixed-size slices of items.
package batch

import (
	"context"
	"sync"
	"time"
)

// Progress describes how far a ProcessItems call has advanced
type Progress struct {
	TotalBatches     int
	ProcessedBatches int
	TotalItems       int
	ProcessedItems   int
	StartTime        time.Time
	LastUpdateTime   time.Time
	Err              error
}

// Done reports whether every item was processed.
func (p Progress) Done() bool {
	return p.ProcessedItems == p.TotalItems
}

// Func handles one batch. offset is the index of batch[0] within the items.
type Func[T any] func(ctx context.Context, batch []T, offset int) error

// Processor hands items to a Func in order, one batch at a time.
// A failing batch stops processing; nothing is retried.
type Processor[T any] struct {
	size       int
	statusChan chan Progress
	mu         sync.Mutex
}

// NewProcessor creates a new batch processor. Sizes below 1 are treated as 1.
func NewProcessor[T any](size int) *Processor[T] {
	if size < 1 {
		size = 1
	}
	return &Processor[T]{
		size:       size,
		statusChan: make(chan Progress, 1),
	}
}

// Size returns the batch size
func (p *Processor[T]) Size() int {
	return p.size
}

// ProcessItems processes items in batches, checking ctx before each batch.
func (p *Processor[T]) ProcessItems(ctx context.Context, items []T, fn Func[T]) error {
	total := len(items)
	if total == 0 {
		return nil
	}

	now := time.Now()
	progress := Progress{
		TotalBatches:   (total + p.size - 1) / p.size,
		TotalItems:     total,
		StartTime:      now,
		LastUpdateTime: now,
	}
	p.updateProgress(progress)

	for start := 0; start < total; start += p.size {
		if err := ctx.Err(); err != nil {
			progress.Err = err
			p.updateProgress(progress)
			return err
		}

		end := min(start+p.size, total)
		if err := fn(ctx, items[start:end], start); err != nil {
			progress.Err = err
			progress.LastUpdateTime = time.Now()
			p.updateProgress(progress)
			return err
		}

		progress.ProcessedBatches++
		progress.ProcessedItems = end
		progress.LastUpdateTime = time.Now()
		p.updateProgress(progress)
	}

	return nil
}

// GetProgress returns the progress channel. It holds only the latest value.
func (p *Processor[T]) GetProgress() <-chan Progress {
	return p.statusChan
}

// updateProgress replaces any unread value with progress
func (p *Processor[T]) updateProgress(progress Progress) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for {
		select {
		case p.statusChan <- progress:
			return
		default:
		}
		select {
		case <-p.statusChan:
		default:
		}
	}
}
