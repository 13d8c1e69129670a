// File: cell/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Package cell implements the resource-principal side of the allocator
// protocol: habitat ownership, current-usage and borrowed masks, per-CPU
// worker handles, and the single-worker state machine (IDLE, RUNNING,
// YIELD_REQUESTED). See spec.md §4.2 and DESIGN.md for the grounding
// ledger.
package cell
