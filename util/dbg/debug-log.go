//go:build debug
// +build debug

package dbg

import (
	"fmt"
	"log"
	"os"
)

type debugTraceLogger struct {
	logger *log.Logger
}

func init() {
	traceLog = &debugTraceLogger{
		logger: log.New(os.Stderr, "", log.Lshortfile),
	}
}

func (d *debugTraceLogger) Printf(format string, a ...interface{}) {
	d.logger.Output(3, fmt.Sprintf(format, a...))
}

func (d *debugTraceLogger) Println(a ...interface{}) {
	d.logger.Output(3, fmt.Sprintln(a...))
}
