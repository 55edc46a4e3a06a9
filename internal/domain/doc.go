// Package domain implements the dispatch decision core for the Al Ghadir
// aerial medic pilot: input normalization, reference case matching, the
// dispatch rule cascade, and landing zone selection.
//
// # Input Conventions
//
// Field encodings in caller-supplied data are heterogeneous and are converted
// to canonical units by the normalizer before any decision logic runs:
//
// Weather risk:
//
//	"10%"  → 10.0   percent string, suffix stripped
//	0.88   → 88.0   numeric ≤ 1 is a fraction, scaled to percent
//	35     → 35.0   numeric > 1 is already a percent
//	Result is always clamped to [0, 100].
//
// Harm window ("time to irreversible harm" in the reference table):
//
//	"4-6 m"    → [4, 6]    closed range, minutes
//	"30 min"   → [30, 30]  single value, degenerate interval
//	">60 m"    → [60, 60]  open lower bound; the upper bound is unknown, so
//	                       the value is carried as a lower-bound-only
//	                       guarantee. See [ParseHarmWindow].
//	Unit suffixes "m" and "min" are stripped. Reversed ranges are swapped.
//	A value without digits is malformed.
//
// Dispatch labels:
//
//	"🚑 Ambulance", "AMBULANCE", "ambulance!"       → ModeAmbulance
//	"🚀 Doctor Drone", "DOCTOR_DRONE", "aerial"     → ModeDoctorDrone
//	Comparison is case-insensitive after stripping punctuation and emoji
//	and collapsing whitespace. Anything else is unrecognized.
//
// # Decision Thresholds
//
// The cascade in [Decide] uses two operational thresholds: drone flight is
// considered unsafe above 35% weather risk, and a drone is only dispatched
// for efficiency when it saves strictly more than 10 minutes over ground.
// Both are strict greater-than comparisons at every threshold. Defaults live
// in [DefaultThresholds] and are tunable through service configuration.
//
// # Determinism
//
// Every operation in this package is a pure function over immutable inputs.
// Case matching breaks score ties by shorter reference key then lexical
// order; zone selection breaks distance ties by zone ID. Repeated runs over
// the same tables always produce identical output, which the validator and
// the regression corpus rely on.
package domain
