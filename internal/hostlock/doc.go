// SPDX-License-Identifier: MPL-2.0

// Package hostlock provides host-wide named exclusive locks for
// serializing access to shared facilities across independent imgcraft
// processes. Each name maps to a well-known lock file guarded by flock(2);
// acquisition polls non-blockingly up to a bounded timeout so waiters can
// log progress and give up instead of deadlocking the host.
package hostlock
