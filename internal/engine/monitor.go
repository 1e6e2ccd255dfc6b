package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/starford/shelf/internal/apperr"
	"github.com/starford/shelf/internal/notify"
	"github.com/starford/shelf/internal/watcher"
)

// EventHandler applies one event. *Engine implements it.
type EventHandler interface {
	HandleEvent(ev watcher.Event) Result
}

// RunMonitor feeds events to h one at a time and emits what each produced.
// A failure or panic while handling one event is reported and the loop goes
// on. It returns when ctx is done or events is closed.
func RunMonitor(ctx context.Context, events <-chan watcher.Event, h EventHandler, out Emitter, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("monitor: started")
	for {
		select {
		case <-ctx.Done():
			logger.Info("monitor: stopped")
			return nil
		case ev, ok := <-events:
			if !ok {
				logger.Info("monitor: event stream closed")
				return nil
			}
			res := handleSafely(h, ev)
			for _, n := range res.Notifications {
				out.Emit(n)
			}
			for _, err := range res.Errors {
				logger.Warn("monitor: event failed",
					slog.String("title", err.Title),
					slog.String("error", err.Error()))
				out.Emit(notify.Failure(err))
			}
		}
	}
}

func handleSafely(h EventHandler, ev watcher.Event) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Result{Errors: []*apperr.Error{
				apperr.New(apperr.KindInvariant, "Error handling file event").
					WithInfo(fmt.Sprint(ev.Paths)).
					WithRaw(fmt.Errorf("panic: %v", r)),
			}}
		}
	}()
	return h.HandleEvent(ev)
}
