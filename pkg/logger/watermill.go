package logger

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
)

// watermillAdapter lets watermill components log through Logger.
type watermillAdapter struct {
	l      Logger
	fields watermill.LogFields
}

// NewWatermillAdapter wraps l as a watermill.LoggerAdapter. Trace is logged
// at debug level.
func NewWatermillAdapter(l Logger) watermill.LoggerAdapter {
	return &watermillAdapter{l: l}
}

func (a *watermillAdapter) Error(msg string, err error, fields watermill.LogFields) {
	a.l.Error(context.Background(), msg, append(a.convert(fields), Error(err))...)
}

func (a *watermillAdapter) Info(msg string, fields watermill.LogFields) {
	a.l.Info(context.Background(), msg, a.convert(fields)...)
}

func (a *watermillAdapter) Debug(msg string, fields watermill.LogFields) {
	a.l.Debug(context.Background(), msg, a.convert(fields)...)
}

func (a *watermillAdapter) Trace(msg string, fields watermill.LogFields) {
	a.l.Debug(context.Background(), msg, a.convert(fields)...)
}

func (a *watermillAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &watermillAdapter{l: a.l, fields: a.fields.Add(fields)}
}

func (a *watermillAdapter) convert(fields watermill.LogFields) []Field {
	all := a.fields.Add(fields)
	out := make([]Field, 0, len(all))
	for k, v := range all {
		out = append(out, Any(k, v))
	}
	return out
}
