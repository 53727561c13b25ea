// Package sim provides the simulation-time primitives shared by every
// protocol layer: the VTimeInSec clock type, the counter-only Hook/Hookable
// seam used for metrics and tracing, and a sequential/parallel string ID
// generator (no package in this module calls it). The package
// intentionally stops short of a full discrete-event scheduler — advancing simulation time and delivering frames
// is the external orchestrator's job (see package node), not the core's.
package sim

// VTimeInSec is the simulation clock type: seconds since the start of a run,
// as a float64. It is the only notion of time the core ever consults.
type VTimeInSec float64

// TimeTeller can be used to get the current time. package tracing's
// time-based tracers take one instead of reading a clock directly, so they
// can be pointed at whatever owns time in the caller (a ctxt.Context, a test
// double, ...).
type TimeTeller interface {
	CurrentTime() VTimeInSec
}
