package logging

import (
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ANSI escape sequences used by the console encoder.
const (
	Reset = "\033[0m"
	Bold  = "\033[1m"
	Dim   = "\033[2m"

	Red           = "\033[31m"
	Green         = "\033[32m"
	Yellow        = "\033[33m"
	White         = "\033[37m"
	Gray          = "\033[90m"
	BrightRed     = "\033[91m"
	BrightGreen   = "\033[92m"
	BrightYellow  = "\033[93m"
	BrightBlue    = "\033[94m"
	BrightMagenta = "\033[95m"
	BrightCyan    = "\033[96m"
	BrightWhite   = "\033[97m"
)

// Component tags a log line with the part of fsdeploy that wrote it.
type Component string

const (
	ComponentMigrate   Component = "MIGRATE"
	ComponentNetwork   Component = "NETWORK"
	ComponentDeployer  Component = "DEPLOYER"
	ComponentCompiler  Component = "COMPILER"
	ComponentArtifacts Component = "ARTIFACTS"
	ComponentStore     Component = "STORE"
	ComponentGeneral   Component = "GENERAL"
)

var componentColors = map[Component]string{
	ComponentMigrate:   BrightBlue,
	ComponentNetwork:   BrightCyan,
	ComponentDeployer:  BrightGreen,
	ComponentCompiler:  BrightMagenta,
	ComponentArtifacts: BrightYellow,
	ComponentStore:     Green,
	ComponentGeneral:   Yellow,
}

type levelLook struct {
	letter string
	color  string
}

var levelLooks = map[zapcore.Level]levelLook{
	zapcore.DebugLevel:  {"D", Gray},
	zapcore.InfoLevel:   {"I", BrightWhite},
	zapcore.WarnLevel:   {"W", BrightYellow},
	zapcore.ErrorLevel:  {"E", BrightRed},
	zapcore.DPanicLevel: {"P", Red},
	zapcore.PanicLevel:  {"P", Red},
	zapcore.FatalLevel:  {"F", Red},
}

// ColoredLogger is a zap logger whose console lines carry a component tag.
type ColoredLogger struct {
	*zap.Logger
	enableColors bool
}

// Options selects level, encoding and destination of a logger.
type Options struct {
	Level      string // debug, info, warn, error
	Format     string // console, json
	OutputFile string // empty for stdout
	Colors     bool   // console format only
}

// ParseLevel converts a configured level name to a zap level. Unknown names map to info.
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

func paint(enabled bool, color, s string) string {
	if !enabled || color == "" {
		return s
	}
	return color + s + Reset
}

// consoleEncoder prints "15:04:05 I deployer msg fields" lines.
func consoleEncoder(colors bool) zapcore.Encoder {
	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(paint(colors, Dim, t.Format("15:04:05")))
	}
	cfg.EncodeLevel = func(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
		look, ok := levelLooks[level]
		if !ok {
			look = levelLook{"?", White}
		}
		enc.AppendString(paint(colors, look.color+Bold, look.letter))
	}
	cfg.EncodeCaller = func(caller zapcore.EntryCaller, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(paint(colors, Dim, strings.TrimSuffix(path.Base(caller.File), ".go")))
	}
	return zapcore.NewConsoleEncoder(cfg)
}

// New builds a logger from options. The returned close function releases the
// output file, if any.
func New(opts Options) (*ColoredLogger, func() error, error) {
	if opts.OutputFile == "" {
		return newLogger(os.Stdout, opts), func() error { return nil }, nil
	}
	file, err := os.OpenFile(opts.OutputFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file %s: %w", opts.OutputFile, err)
	}
	opts.Colors = false
	return newLogger(file, opts), file.Close, nil
}

// NewWriterLogger builds a logger that writes to w.
func NewWriterLogger(w io.Writer, opts Options) *ColoredLogger {
	return newLogger(w, opts)
}

// componentSkip is the number of frames between a caller of ComponentInfo
// and the zap Check call.
const componentSkip = 2

func newLogger(w io.Writer, opts Options) *ColoredLogger {
	colors := opts.Colors
	var encoder zapcore.Encoder
	if strings.EqualFold(opts.Format, "json") {
		encoder = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
		colors = false
	} else {
		encoder = consoleEncoder(colors)
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(w), ParseLevel(opts.Level))
	return &ColoredLogger{
		Logger:       zap.New(core, zap.AddCaller(), zap.AddCallerSkip(componentSkip)),
		enableColors: colors,
	}
}

func (l *ColoredLogger) log(level zapcore.Level, component Component, msg string, fields []zap.Field) {
	tag := "[" + string(component) + "]"
	if l.enableColors {
		tag = paint(true, componentColors[component], tag)
	}
	if ce := l.Check(level, tag+" "+msg); ce != nil {
		ce.Write(fields...)
	}
}

func (l *ColoredLogger) ComponentInfo(component Component, msg string, fields ...zap.Field) {
	l.log(zapcore.InfoLevel, component, msg, fields)
}

func (l *ColoredLogger) ComponentWarn(component Component, msg string, fields ...zap.Field) {
	l.log(zapcore.WarnLevel, component, msg, fields)
}

func (l *ColoredLogger) ComponentError(component Component, msg string, fields ...zap.Field) {
	l.log(zapcore.ErrorLevel, component, msg, fields)
}

func (l *ColoredLogger) ComponentDebug(component Component, msg string, fields ...zap.Field) {
	l.log(zapcore.DebugLevel, component, msg, fields)
}

// For returns a plain zap logger named after component, for packages that
// accept *zap.Logger.
func (l *ColoredLogger) For(component Component) *zap.Logger {
	return l.Logger.WithOptions(zap.AddCallerSkip(-componentSkip)).Named(strings.ToLower(string(component)))
}
