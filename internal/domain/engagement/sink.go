package engagement

import (
	"io"
	"log/slog"
)

// Properties is the payload attached to a reported event.
type Properties map[string]any

// Reporter is the external analytics sink. Implementations must not block.
type Reporter interface {
	Report(event string, props Properties)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(event string, props Properties)

func (f ReporterFunc) Report(event string, props Properties) {
	if f == nil {
		return
	}
	f(event, props)
}

type pendingReport struct {
	event string
	props Properties
}

// emit forwards one report, treating a missing or failing sink as a no-op.
func emit(r Reporter, event string, props Properties) {
	if r == nil {
		return
	}
	defer func() {
		_ = recover()
	}()
	r.Report(event, props)
}

func emitAll(r Reporter, reports []pendingReport) {
	for _, p := range reports {
		emit(r, p.event, p.props)
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func loggerOrDiscard(l *slog.Logger) *slog.Logger {
	if l == nil {
		return discardLogger()
	}
	return l
}
