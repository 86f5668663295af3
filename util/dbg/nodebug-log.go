//go:build !debug
// +build !debug

package dbg

type noopTraceLogger struct{}

func init() {
	traceLog = &noopTraceLogger{}
}

func (n *noopTraceLogger) Printf(format string, a ...interface{}) {}

func (n *noopTraceLogger) Println(a ...interface{}) {}
