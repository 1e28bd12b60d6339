// SPDX-License-Identifier: MPL-2.0

package cueutil

// DefaultMaxFileSize bounds user-provided files parsed through this
// package. Plans and configs are small; anything near this limit is a
// mistake or an attack.
const DefaultMaxFileSize int64 = 1 << 20 // 1 MiB

type (
	// Option configures a ParseAndDecode call.
	Option func(*options)

	options struct {
		filename    string
		maxFileSize int64
		concrete    bool
	}
)

func defaultOptions() options {
	return options{
		maxFileSize: DefaultMaxFileSize,
		concrete:    true,
	}
}

// WithFilename sets the filename used in error messages.
func WithFilename(name string) Option {
	return func(o *options) { o.filename = name }
}

// WithMaxFileSize overrides the size limit on the input data.
func WithMaxFileSize(n int64) Option {
	return func(o *options) { o.maxFileSize = n }
}

// WithoutConcrete disables the concreteness requirement, allowing
// validated values to keep unresolved defaults.
func WithoutConcrete() Option {
	return func(o *options) { o.concrete = false }
}
