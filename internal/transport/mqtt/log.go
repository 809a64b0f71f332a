package mqtt

import (
	"context"
	"fmt"
	"strings"

	paho "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap/zapcore"

	"github.com/oshokin/wellness-node/internal/logger"
)

// pahoLogger adapts a printf-style function to paho.Logger.
type pahoLogger struct {
	printf func(template string, args ...any)
}

// Println implements paho.Logger.
func (l pahoLogger) Println(v ...any) {
	l.printf("%s", strings.TrimSuffix(fmt.Sprintln(v...), "\n"))
}

// Printf implements paho.Logger.
func (l pahoLogger) Printf(format string, v ...any) {
	l.printf(format, v...)
}

// RedirectLibraryLogs sends the client library's warnings and errors to the
// context logger. The library keeps its loggers in package variables, so
// this is called once at startup.
func RedirectLibraryLogs(ctx context.Context) {
	l := logger.FromContext(ctx).
		Named("paho").
		Desugar().
		WithOptions(logger.WithLevel(zapcore.WarnLevel)).
		Sugar()

	paho.CRITICAL = pahoLogger{printf: l.Errorf}
	paho.ERROR = pahoLogger{printf: l.Errorf}
	paho.WARN = pahoLogger{printf: l.Warnf}
}
