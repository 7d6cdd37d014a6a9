// Package safe isolates per-entity and per-callback failures so one bad
// callback never aborts a simulation tick.
package safe

import (
	"errors"

	"github.com/samber/oops"
	"go.uber.org/zap"
)

// Run executes fn, turning a panic or a returned error into an oops error
// tagged with code. The failure is logged with its full cause chain and
// returned; it never escapes as a panic.
func Run(log *zap.Logger, code string, fn func() error, fields ...zap.Field) error {
	var err error
	if perr := oops.Code(code).Recover(func() { err = fn() }); perr != nil {
		err = perr
	} else if err != nil {
		err = oops.Code(code).Wrap(err)
	}
	if err != nil {
		LogError(log, "contained failure", err, fields...)
	}
	return err
}

// Do is Run for callbacks that cannot return an error.
func Do(log *zap.Logger, code string, fn func(), fields ...zap.Field) error {
	return Run(log, code, func() error {
		fn()
		return nil
	}, fields...)
}

// LogError logs err with code, context and stacktrace when it is an oops
// error, plus every message along its Unwrap chain.
func LogError(log *zap.Logger, msg string, err error, fields ...zap.Field) {
	if log == nil || err == nil {
		return
	}
	fields = append(fields, zap.Error(err), zap.Strings("causes", Chain(err)))
	if oopsErr, ok := oops.AsOops(err); ok {
		if code := oopsErr.Code(); code != "" {
			fields = append(fields, zap.Any("code", code))
		}
		if ctx := oopsErr.Context(); len(ctx) > 0 {
			fields = append(fields, zap.Any("context", ctx))
		}
		if st := oopsErr.Stacktrace(); st != "" {
			fields = append(fields, zap.String("stacktrace", st))
		}
	}
	log.Error(msg, fields...)
}

// Chain returns the distinct messages found walking err's Unwrap chain,
// outermost first.
func Chain(err error) []string {
	var out []string
	last := ""
	for e := err; e != nil; e = errors.Unwrap(e) {
		msg := e.Error()
		if msg != last {
			out = append(out, msg)
			last = msg
		}
	}
	return out
}
