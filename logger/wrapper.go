package logger

type LevelWrapper struct {
	Base
}

func WrapLogger(l Base) Logger {
	return &LevelWrapper{l}
}

func (w *LevelWrapper) With(kv ...any) Logger {
	if len(kv) == 0 {
		return w
	}

	if cb, ok := w.Base.(ContextualBase); ok {
		return &LevelWrapper{cb.With(kv...)}
	}

	return &LevelWrapper{&prefixed{base: w.Base, kv: kv}}
}

func (w *LevelWrapper) Debug(msg string, kv ...any) {
	w.Log(DebugLevel, msg, kv...)
}

func (w *LevelWrapper) Info(msg string, kv ...any) {
	w.Log(InfoLevel, msg, kv...)
}

func (w *LevelWrapper) Warn(msg string, kv ...any) {
	w.Log(WarnLevel, msg, kv...)
}

func (w *LevelWrapper) Error(msg string, kv ...any) {
	w.Log(ErrorLevel, msg, kv...)
}

type prefixed struct {
	base Base
	kv   []any
}

func (p *prefixed) Level() LogLevel {
	return p.base.Level()
}

func (p *prefixed) Log(level LogLevel, msg string, kv ...any) {
	all := make([]any, 0, len(p.kv)+len(kv))
	all = append(all, p.kv...)
	all = append(all, kv...)
	p.base.Log(level, msg, all...)
}
