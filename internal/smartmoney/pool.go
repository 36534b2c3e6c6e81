package smartmoney

// pool.go: worker pool genérico para las llamadas por wallet y por página.
//
// Las goroutines se autolimitan con el rate limiter del client; el pool solo
// acota cuántas requests hay en vuelo a la vez.

import (
	"context"
	"sync"
)

const defaultWorkers = 4

// runPool aplica fn a cada item con como máximo workers goroutines y devuelve
// los resultados con ok=true. El orden de salida no está garantizado.
func runPool[In, Out any](ctx context.Context, items []In, workers int, fn func(context.Context, In) (Out, bool)) []Out {
	if workers <= 0 {
		workers = defaultWorkers
	}
	if workers > len(items) {
		workers = len(items)
	}

	workCh := make(chan In)
	resultCh := make(chan Out, len(items))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range workCh {
				if out, ok := fn(ctx, item); ok {
					resultCh <- out
				}
			}
		}()
	}

	// Alimentar el work channel; si el contexto se cancela dejamos de encolar.
feed:
	for _, item := range items {
		select {
		case workCh <- item:
		case <-ctx.Done():
			break feed
		}
	}
	close(workCh)

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	results := make([]Out, 0, len(items))
	for r := range resultCh {
		results = append(results, r)
	}
	return results
}
