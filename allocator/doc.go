// File: allocator/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Package allocator implements the dynamic CPU-core allocator: global
// per-CPU ownership, current-usage, and borrowing state, kept consistent
// under parallel allocation and reclamation across every CPU, with a
// priority-ordered, non-preemptive ceding discipline for involuntary
// reclaim. See spec.md §4.1 and DESIGN.md for the grounding ledger.
package allocator
