package internal

import (
	"context"
	"os"
	"sync"
)

type ctxKeyCorrelationId struct{}

func CtxWithCorrelationId(ctx context.Context, correlationId string) context.Context {
	return context.WithValue(ctx, ctxKeyCorrelationId{}, correlationId)
}

func CorrelationIdFromCtx(ctx context.Context) string {
	item := ctx.Value(ctxKeyCorrelationId{})
	correlationId, ok := item.(string)
	if ok {
		return correlationId
	}
	return ""
}

// LaunchContext returns a context that's cancelled when a signal is received
// on osSignal or when the returned cancel function is called
func LaunchContext(wg *sync.WaitGroup, osSignal chan os.Signal) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer cancel()

		select {
		case <-ctx.Done():
		case <-osSignal:
		}
	}()
	return ctx, cancel
}
