// SPDX-License-Identifier: MPL-2.0

// Package retry provides a bounded-retry executor with exponential backoff
// and jitter. Callers classify errors as transient via a Classifier; fatal
// errors propagate immediately, transient ones are retried until the
// attempt budget is spent, at which point an *ExhaustedError wrapping the
// last cause is returned.
package retry
