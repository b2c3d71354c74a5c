// Package metrics exposes gate and account counters in Prometheus format.
//
// A nil *Recorder is valid and records nothing, so components can take one
// unconditionally.
package metrics
