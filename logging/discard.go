package logging

import "context"

type discardLogger struct{}

// Discard returns a logger that drops everything. Intended for tests.
func Discard() Logger { return discardLogger{} }

func (discardLogger) Debug(context.Context, string, ...any) {}
func (discardLogger) Info(context.Context, string, ...any)  {}
func (discardLogger) Warn(context.Context, string, ...any)  {}
func (discardLogger) Error(context.Context, string, ...any) {}
func (discardLogger) With(...any) Logger                    { return discardLogger{} }
