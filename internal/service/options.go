package service

import "time"

type options struct {
	now func() time.Time
}

type Option func(*options)

// WithClock replaces time.Now, mainly for tests that need to move time.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func applyOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
