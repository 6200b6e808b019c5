package apiclient

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Call is one read in a fan-out.
type Call func(ctx context.Context) (Payload, error)

// FanOut runs calls concurrently and waits for all of them. The first failure
// cancels the others and fails the whole operation; no partial results are
// returned.
func FanOut(ctx context.Context, calls map[string]Call) (map[string]Payload, error) {
	g, gctx := errgroup.WithContext(ctx)

	var lock sync.Mutex
	results := make(map[string]Payload, len(calls))
	for name, call := range calls {
		g.Go(func() error {
			payload, err := call(gctx)
			if err != nil {
				log.Debug().Err(err).Str("call", name).Msg("Fan-out call failed")
				return err
			}
			lock.Lock()
			results[name] = payload
			lock.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
