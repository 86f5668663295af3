// Package dbg implements the emulator's three-tier severity scheme
// (Info / Error / Fatal), grounded on the original C sources'
// emulator_info/emulator_error/emulator_fatal functions.
//
// Info and Error are suppressed together by quiet mode. Fatal is never
// suppressed: it always returns a non-nil error for the caller to
// propagate up to the tick loop, in place of the original's
// setjmp/longjmp unwind.
package dbg

import (
	"fmt"

	"go.uber.org/zap"
)

var sugar *zap.SugaredLogger

func init() {
	logger, err := zap.NewProduction(zap.WithCaller(false))
	if err != nil {
		logger = zap.NewNop()
	}
	sugar = logger.Sugar()
}

var quiet bool

// SetQuiet mirrors the --quiet command line flag: when set, Info and
// Error reports are not emitted. Fatal is unaffected.
func SetQuiet(q bool) {
	quiet = q
}

// Info reports an informational message. No-op when quiet.
func Info(format string, a ...interface{}) {
	if quiet {
		return
	}
	sugar.Infof(format, a...)
}

// Error reports a recoverable error. No-op when quiet. Unlike Fatal,
// this never interrupts the caller — it mirrors emulator_error, which
// prints and returns.
func Error(format string, a ...interface{}) {
	if quiet {
		return
	}
	sugar.Errorf(format, a...)
}

// FatalError is the sentinel error type returned by Fatal. It replaces
// the original's setjmp/longjmp unwind with an ordinary Go error that
// the CPU tick loop propagates and the top-level run loop catches.
type FatalError struct {
	msg string
}

func (e *FatalError) Error() string { return e.msg }

// Fatal builds a FatalError carrying the formatted message. It is
// never suppressed by quiet mode — unlike Info/Error, a fatal
// condition always halts the emulator.
func Fatal(format string, a ...interface{}) error {
	msg := fmt.Sprintf(format, a...)
	sugar.Errorw("fatal", "msg", msg)
	return &FatalError{msg: msg}
}

// Printf is the teacher's original trace-level hook, active only in
// debug builds (see debug-log.go / nodebug-log.go).
type traceLogger interface {
	Printf(format string, a ...interface{})
	Println(a ...interface{})
}

var traceLog traceLogger

func Printf(format string, a ...interface{}) {
	traceLog.Printf(format, a...)
}

func Println(a ...interface{}) {
	traceLog.Println(a...)
}
