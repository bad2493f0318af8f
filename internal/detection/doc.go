// Package detection provides the bounding-box geometry used to refine tooth
// detections.
//
// Object detectors report many overlapping boxes for the same tooth. This
// package turns such a set into a set of mutually distinguishable boxes. It
// performs no I/O and never mutates its inputs.
//
// # Coordinate System
//
// All coordinates use the standard image convention:
//   - Origin (0, 0) at top-left corner
//   - X increases rightward
//   - Y increases downward
//   - Boxes use inclusive top-left and exclusive bottom-right
//
// # Suppression Strategies
//
// Three strategies are provided, all generic over any type implementing
// Boxed, so a box always travels with its crop and confidence:
//
//   - IOU: sort by area (largest first, stable), greedily keep the largest and
//     drop everything overlapping it with IOU >= threshold (default 0.1)
//   - Center: walk the input in order and drop any box whose center is closer
//     than a minimum distance (default 100 px) to a kept box's center
//   - Hybrid: IOU at a looser threshold (default 0.5), then Center on the
//     survivors
//
// Results are deterministic for a fixed input order and thresholds.
//
// # Guarantees
//
// For the output of SuppressIOU every pair satisfies IOU(a, b) < threshold.
// For the output of SuppressCenter every pair of centers is at least the
// minimum distance apart. No strategy returns more items than it received.
package detection
