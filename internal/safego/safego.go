// Package safego launches panic-recovering goroutines. The audit write path
// is fire-and-forget relative to the HTTP response; an unrecovered panic
// there would silently kill the goroutine and, worse, crash the process on
// some runtimes. Use Go for every background goroutine whose failure must
// stay invisible to request handling.
package safego

import "log/slog"

// Go runs fn in a new goroutine, recovering and logging any panic. The task
// label names the work in the panic log so a recurring failure (an audit
// write, a shipper flush) can be traced without reading goroutine dumps.
func Go(task string, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("recovered panic in background goroutine", "task", task, "panic", r)
			}
		}()
		fn()
	}()
}
