package logging

import (
	"fmt"
	"log/slog"
	"strings"
)

// RestyLogger routes go-resty's printf-style logging into slog.
type RestyLogger struct {
	Logger *slog.Logger
}

func (l RestyLogger) logger() *slog.Logger {
	if l.Logger == nil {
		return slog.Default()
	}
	return l.Logger
}

func (l RestyLogger) Errorf(format string, v ...interface{}) {
	l.logger().Error(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l RestyLogger) Warnf(format string, v ...interface{}) {
	l.logger().Warn(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l RestyLogger) Debugf(format string, v ...interface{}) {
	l.logger().Debug(strings.TrimSpace(fmt.Sprintf(format, v...)))
}
