package logger

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"math/rand"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"moul.io/zapfilter"
)

// DefaultRule lets everything through. See zapfilter.ParseRules for the syntax,
// e.g. "*:*,-peerpool* warn+:peerpool*".
const DefaultRule = "*"

var Log *zap.Logger

var rule atomic.Value // zapfilter.FilterFunc

func Named(s string) *zap.Logger {
	return Log.Named(s)
}

type ctxKey string

var kCtxID = ctxKey("ctxID")

func Ctx(prev *zap.Logger, ctx context.Context) *zap.Logger {
	if v, ok := ctx.Value(kCtxID).(string); ok {
		return prev.With(zap.String("ctxID", v))
	}
	return prev
}

func NewContextid(ctx context.Context) context.Context {
	w := make([]byte, 8)
	binary.BigEndian.PutUint64(w, rand.Uint64())
	return context.WithValue(ctx, kCtxID, hex.EncodeToString(w))
}

// SetRule replaces the zapfilter rule of every logger derived from Log,
// including package level loggers created at init.
func SetRule(s string) error {
	f, err := zapfilter.ParseRules(s)
	if err != nil {
		return err
	}
	rule.Store(f)
	return nil
}

func filter(entry zapcore.Entry, fields []zapcore.Field) bool {
	return rule.Load().(zapfilter.FilterFunc)(entry, fields)
}

func init() {
	rule.Store(zapfilter.MustParseRules(DefaultRule))
	devLog, _ := zap.NewDevelopment()
	Log = zap.New(zapfilter.NewFilteringCore(devLog.Core(), filter))
}
