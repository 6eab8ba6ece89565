package catalog

import (
	"context"
	"runtime"

	"github.com/gzapi/GZPlayer/internal/m3u"
)

// Chunk size bounds for batched catalog work. The size adapts to the total
// workload so very large playlists still yield frequently while small ones
// finish in a single pass.
const (
	minChunkSize = 256
	maxChunkSize = 4096
)

func chunkSize(total int) int {
	size := total / 32

	if size < minChunkSize {
		size = minChunkSize
	}

	if size > maxChunkSize {
		size = maxChunkSize
	}

	return size
}

// runChunked processes indexes [0, total) in batches, calling fn with each
// half-open [start, end) range. The context is checked at every batch
// boundary: a cancelled run aborts immediately and its partial output must
// be discarded by the caller. The scheduler is yielded between batches so
// batching never affects the result, only scheduling.
func runChunked(ctx context.Context, total int, fn func(start, end int)) error {
	size := chunkSize(total)

	for start := 0; start < total; start += size {
		if err := ctx.Err(); err != nil {
			return err
		}

		end := start + size
		if end > total {
			end = total
		}

		fn(start, end)

		runtime.Gosched()
	}

	return ctx.Err()
}

// ClassifyAll classifies entries in order, in cancellable batches. The output
// order matches the input order regardless of batching. The only error is a
// cancelled context.
func ClassifyAll(ctx context.Context, entries []m3u.Entry) ([]Item, error) {
	items := make([]Item, len(entries))

	err := runChunked(ctx, len(entries), func(start, end int) {
		for i := start; i < end; i++ {
			items[i] = Classify(entries[i])
		}
	})
	if err != nil {
		return nil, err
	}

	return items, nil
}
