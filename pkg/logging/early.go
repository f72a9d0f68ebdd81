package logging

import (
	"fmt"
	"os"
)

// EarlyLog covers the window before the structured logger exists: config
// loading and logger construction itself.
type EarlyLog struct{}

func NewEarlyLog() *EarlyLog {
	return &EarlyLog{}
}

// Error prints to stderr and exits. There is no recovering from a failure
// this early in startup.
func (l *EarlyLog) Error(msg string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "ERROR: "+msg+"\n", args...)
	os.Exit(1)
}

func (l *EarlyLog) Warn(msg string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "WARN: "+msg+"\n", args...)
}
