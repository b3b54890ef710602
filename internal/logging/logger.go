package logging

import (
	"context"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the process-wide logger. Init configures it; until then it logs text to stderr.
var Logger = logrus.New()

type requestIDKey struct{}

type Options struct {
	Level       string
	Environment string
	Service     string
	File        string
}

// Init configures Logger. When opt.File is set, output goes to stdout and a rotating file.
func Init(opt Options) {
	level, err := logrus.ParseLevel(opt.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	Logger.SetLevel(level)

	if opt.Environment == "production" {
		Logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		Logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	var out io.Writer = os.Stdout
	if opt.File != "" {
		out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   opt.File,
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     28,
			Compress:   true,
		})
	}
	Logger.SetOutput(out)

	Logger.ReplaceHooks(make(logrus.LevelHooks))
	if opt.Service != "" {
		Logger.AddHook(serviceHook(opt.Service))
	}
}

// WithRequestID returns a copy of ctx carrying the request id.
func WithRequestID(ctx context.Context, rid string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, rid)
}

// RequestID extracts the request id stored by WithRequestID.
func RequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if rid, ok := ctx.Value(requestIDKey{}).(string); ok {
		return rid
	}
	return ""
}

// FromContext returns an entry tagged with the request id, if any.
func FromContext(ctx context.Context) *logrus.Entry {
	entry := logrus.NewEntry(Logger)
	if rid := RequestID(ctx); rid != "" {
		entry = entry.WithField("request_id", rid)
	}
	return entry
}

type serviceHook string

func (h serviceHook) Levels() []logrus.Level { return logrus.AllLevels }

func (h serviceHook) Fire(e *logrus.Entry) error {
	if _, ok := e.Data["service"]; !ok {
		e.Data["service"] = string(h)
	}
	return nil
}
