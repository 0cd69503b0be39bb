package logger

import (
	"io"
	"os"
	"sync"
	"time"
)

// Logger is a leveled, namespaced logger. All With* methods return a new
// Logger and leave the receiver untouched, so a Logger can be shared freely
// between goroutines.
type Logger interface {
	// Namespace returns the current namespace.
	Namespace() string

	// IsLevelEnabled returns true when level is enabled for the current
	// namespace.
	IsLevelEnabled(level Level) bool

	// Trace adds a log entry with level trace.
	Trace(message string, ctx Ctx)

	// Debug adds a log entry with level debug.
	Debug(message string, ctx Ctx)

	// Info adds a log entry with level info.
	Info(message string, ctx Ctx)

	// Warn adds a log entry with level warn.
	Warn(message string, ctx Ctx)

	// Error adds a log entry with level error. The error may be nil.
	Error(message string, err error, ctx Ctx)

	// WithCtx returns a new Logger with ctx merged into the existing context.
	WithCtx(ctx Ctx) Logger

	// WithConfig returns a new Logger with config set.
	WithConfig(config Config) Logger

	// WithFormatter returns a new Logger with formatter set.
	WithFormatter(formatter Formatter) Logger

	// WithWriter returns a new Logger with writer set.
	WithWriter(w io.Writer) Logger

	// WithNamespaceAppended returns a new Logger whose namespace is the
	// current namespace with ns appended after a colon.
	WithNamespaceAppended(ns string) Logger
}

type lgr struct {
	config    Config
	ctx       Ctx
	formatter Formatter
	namespace string
	writer    io.Writer
	writerMu  *sync.Mutex
}

// compile-time assertion that lgr implements Logger.
var _ Logger = &lgr{}

// New returns a new Logger writing to stderr. Logging is disabled until a
// Config is set with WithConfig.
func New() Logger {
	return &lgr{
		config:    ConfigMap{},
		ctx:       nil,
		formatter: NewStringFormatter(),
		namespace: "",
		writer:    os.Stderr,
		writerMu:  &sync.Mutex{},
	}
}

// NewFromEnv returns a new Logger configured from the environment variable
// named key. See NewConfigMapFromString for the syntax.
func NewFromEnv(key string) Logger {
	return New().WithConfig(NewConfigMapFromString(os.Getenv(key)))
}

func (l *lgr) clone() *lgr {
	return &lgr{
		config:    l.config,
		ctx:       l.ctx,
		formatter: l.formatter,
		namespace: l.namespace,
		writer:    l.writer,
		writerMu:  l.writerMu,
	}
}

func (l *lgr) Namespace() string {
	return l.namespace
}

func (l *lgr) IsLevelEnabled(level Level) bool {
	if l.config == nil {
		return false
	}

	return l.config.LevelForNamespace(l.namespace) >= level
}

func (l *lgr) WithCtx(ctx Ctx) Logger {
	ret := l.clone()
	ret.ctx = l.ctx.WithCtx(ctx)

	return ret
}

func (l *lgr) WithConfig(config Config) Logger {
	if config == nil {
		return l
	}

	ret := l.clone()
	ret.config = config

	return ret
}

func (l *lgr) WithFormatter(formatter Formatter) Logger {
	ret := l.clone()
	ret.formatter = formatter

	return ret
}

func (l *lgr) WithWriter(w io.Writer) Logger {
	ret := l.clone()
	ret.writer = w

	return ret
}

func (l *lgr) WithNamespaceAppended(ns string) Logger {
	ret := l.clone()

	if l.namespace != "" {
		ret.namespace = l.namespace + ":" + ns
	} else {
		ret.namespace = ns
	}

	return ret
}

func (l *lgr) log(level Level, body string, ctx Ctx) {
	if !l.IsLevelEnabled(level) {
		return
	}

	b, err := l.formatter.Format(Message{
		Timestamp: time.Now(),
		Namespace: l.namespace,
		Level:     level,
		Body:      body,
		Ctx:       l.ctx.WithCtx(ctx),
	})
	if err != nil {
		return
	}

	l.writerMu.Lock()
	defer l.writerMu.Unlock()

	_, _ = l.writer.Write(b)
}

func (l *lgr) Trace(message string, ctx Ctx) {
	l.log(LevelTrace, message, ctx)
}

func (l *lgr) Debug(message string, ctx Ctx) {
	l.log(LevelDebug, message, ctx)
}

func (l *lgr) Info(message string, ctx Ctx) {
	l.log(LevelInfo, message, ctx)
}

func (l *lgr) Warn(message string, ctx Ctx) {
	l.log(LevelWarn, message, ctx)
}

func (l *lgr) Error(message string, err error, ctx Ctx) {
	if err != nil {
		ctx = ctx.WithCtx(Ctx{"error": err.Error()})
	}

	l.log(LevelError, message, ctx)
}
