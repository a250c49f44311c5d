package effect

import "log/slog"

type options struct {
	log            *slog.Logger
	valueCacheSize int
}

type Option func(*options)

func WithLogger(log *slog.Logger) Option {
	return func(o *options) {
		if log != nil {
			o.log = log
		}
	}
}

// WithValueCacheSize bounds the number of characteristic values kept for
// LastValue. Zero or less disables the cache.
func WithValueCacheSize(n int) Option {
	return func(o *options) {
		o.valueCacheSize = n
	}
}
