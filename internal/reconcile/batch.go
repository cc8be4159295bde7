package reconcile

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// ErrSkipped may be returned by a batch step to mark the device as skipped.
var ErrSkipped = errors.New("skipped")

type batchIDKey struct{}

// BatchID returns the id of the batch a step runs in, or "".
func BatchID(ctx context.Context) string {
	id, _ := ctx.Value(batchIDKey{}).(string)
	return id
}

// Result aggregates the outcome of a batch.
type Result struct {
	ID        string
	Succeeded []string
	Skipped   []string
	Failed    map[string]error
}

// OK reports whether no device failed.
func (r *Result) OK() bool {
	return len(r.Failed) == 0
}

// Err joins all failures in device-name order, or returns nil.
func (r *Result) Err() error {
	if len(r.Failed) == 0 {
		return nil
	}
	names := make([]string, 0, len(r.Failed))
	for name := range r.Failed {
		names = append(names, name)
	}
	sort.Strings(names)

	errs := make([]error, 0, len(names))
	for _, name := range names {
		errs = append(errs, fmt.Errorf("%s: %w", name, r.Failed[name]))
	}
	return errors.Join(errs...)
}

// Batch runs one step per device, sequentially. Every device runs in its
// own recovered scope so a failure or panic never aborts its siblings.
type Batch struct {
	limiter *rate.Limiter
}

// NewBatch creates a batch runner pacing devices at rps (0 = unlimited).
func NewBatch(rps float64) *Batch {
	limit := rate.Inf
	burst := 1
	if rps > 0 {
		limit = rate.Limit(rps)
		burst = int(math.Max(1, rps))
	}
	return &Batch{limiter: rate.NewLimiter(limit, burst)}
}

// Run executes step for every name in order.
func (b *Batch) Run(ctx context.Context, names []string, step func(ctx context.Context, name string) error) *Result {
	res := &Result{
		ID:     uuid.NewString(),
		Failed: make(map[string]error),
	}
	ctx = context.WithValue(ctx, batchIDKey{}, res.ID)

	for _, name := range names {
		if err := b.limiter.Wait(ctx); err != nil {
			res.Failed[name] = err
			continue
		}

		err := runIsolated(ctx, name, step)
		switch {
		case err == nil:
			res.Succeeded = append(res.Succeeded, name)
		case errors.Is(err, ErrSkipped):
			res.Skipped = append(res.Skipped, name)
		default:
			log.Warn().Err(err).Str("device", name).Str("batch", res.ID).Msg("Device step failed")
			res.Failed[name] = err
		}
	}

	log.Debug().
		Str("batch", res.ID).
		Int("succeeded", len(res.Succeeded)).
		Int("skipped", len(res.Skipped)).
		Int("failed", len(res.Failed)).
		Msg("Batch finished")
	return res
}

func runIsolated(ctx context.Context, name string, step func(ctx context.Context, name string) error) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().Interface("panic", rec).Str("device", name).Msg("Device step panicked")
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return step(ctx, name)
}
