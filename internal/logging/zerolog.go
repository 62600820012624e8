package logging

import (
	"context"
	"io"

	"github.com/rs/zerolog"
)

// ZerologLogger adapts zerolog.Logger to Logger. Key–value args are attached
// as fields; an odd trailing key is logged with a nil value.
type ZerologLogger struct {
	l zerolog.Logger
}

// NewZerologLogger writes JSON lines with timestamps to w at the given level.
func NewZerologLogger(w io.Writer, level zerolog.Level) *ZerologLogger {
	l := zerolog.New(zerolog.SyncWriter(w)).Level(level).With().Timestamp().Logger()
	return &ZerologLogger{l: l}
}

func (z *ZerologLogger) Debug(ctx context.Context, msg string, args ...any) {
	z.emit(ctx, z.l.Debug(), msg, args)
}

func (z *ZerologLogger) Info(ctx context.Context, msg string, args ...any) {
	z.emit(ctx, z.l.Info(), msg, args)
}

func (z *ZerologLogger) Warn(ctx context.Context, msg string, args ...any) {
	z.emit(ctx, z.l.Warn(), msg, args)
}

func (z *ZerologLogger) Error(ctx context.Context, msg string, args ...any) {
	z.emit(ctx, z.l.Error(), msg, args)
}

func (z *ZerologLogger) With(args ...any) Logger {
	return &ZerologLogger{l: z.l.With().Fields(pairs(args)).Logger()}
}

func (z *ZerologLogger) emit(ctx context.Context, ev *zerolog.Event, msg string, args []any) {
	if ev == nil {
		return
	}
	if ctx != nil {
		ev = ev.Ctx(ctx)
	}
	ev.Fields(pairs(withContextFields(ctx, args))).Msg(msg)
}

// pairs normalizes args into the []any{key, value, ...} form zerolog expects,
// stringifying keys and errors.
func pairs(args []any) []any {
	out := make([]any, 0, len(args)+1)
	for i := 0; i < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			key = "!BADKEY"
		}
		var val any
		if i+1 < len(args) {
			val = args[i+1]
		}
		if err, ok := val.(error); ok {
			val = err.Error()
		}
		out = append(out, key, val)
	}
	return out
}
