// Package logx is the small tagged-Printf logging helper used across
// both services, matching the fmt.Printf/log.Printf call-site style the
// rest of the codebase uses rather than a structured logging library.
package logx

import (
	"fmt"
	"log"
)

// Logger tags every line with a component name, e.g. "[monaco]".
type Logger struct {
	component string
}

// New returns a Logger tagging its output with component.
func New(component string) *Logger {
	return &Logger{component: component}
}

func (l *Logger) Infof(format string, args ...interface{}) {
	log.Printf("[%s] "+format, append([]interface{}{l.component}, args...)...)
}

func (l *Logger) Warnf(format string, args ...interface{}) {
	log.Printf("⚠️  [%s] "+format, append([]interface{}{l.component}, args...)...)
}

func (l *Logger) Errorf(format string, args ...interface{}) {
	log.Printf("🛑 [%s] "+format, append([]interface{}{l.component}, args...)...)
}

func (l *Logger) Fatalf(format string, args ...interface{}) {
	log.Fatalf("🛑 [%s] "+format, append([]interface{}{l.component}, args...)...)
}

// Tagf prepends a component tag without a severity marker, used for the
// routine "✓ did a thing" lines the teacher sprinkles through startup
// and periodic logs.
func Tagf(component, format string, args ...interface{}) string {
	return fmt.Sprintf("[%s] "+format, append([]interface{}{component}, args...)...)
}
