// Package logging builds the operator's structured logger on top of zap and
// the controller-runtime logging bridge.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/go-logr/logr"
	"github.com/mattn/go-isatty"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	ctrlzap "sigs.k8s.io/controller-runtime/pkg/log/zap"

	"github.com/kubesphere/devworkspace-operator/internal/config"
)

const (
	FormatJSON    = "json"
	FormatConsole = "console"
	FormatAuto    = "auto"
)

// New returns a logr.Logger writing to out. A nil out means stderr.
func New(cfg config.LoggingConfig, out io.Writer) logr.Logger {
	if out == nil {
		out = os.Stderr
	}

	level := zap.NewAtomicLevelAt(ParseLevel(cfg.Level))
	opts := []ctrlzap.Opts{
		ctrlzap.WriteTo(out),
		ctrlzap.UseDevMode(cfg.Development),
		ctrlzap.Level(level),
	}

	switch ResolveFormat(cfg.Format, out) {
	case FormatConsole:
		opts = append(opts, ctrlzap.Encoder(zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())))
	default:
		opts = append(opts, ctrlzap.Encoder(zapcore.NewJSONEncoder(jsonEncoderConfig())))
	}

	return ctrlzap.New(opts...)
}

// ResolveFormat turns "auto" into console on a terminal and json otherwise.
func ResolveFormat(format string, out io.Writer) string {
	switch strings.ToLower(format) {
	case FormatJSON:
		return FormatJSON
	case FormatConsole:
		return FormatConsole
	}
	if f, ok := out.(*os.File); ok && isTerminal(f) {
		return FormatConsole
	}
	return FormatJSON
}

// ParseLevel maps a level name to zap. Unknown names mean info.
func ParseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func jsonEncoderConfig() zapcore.EncoderConfig {
	ec := zap.NewProductionEncoderConfig()
	ec.TimeKey = "time"
	ec.MessageKey = "msg"
	ec.EncodeTime = zapcore.ISO8601TimeEncoder
	ec.EncodeLevel = zapcore.LowercaseLevelEncoder
	return ec
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
