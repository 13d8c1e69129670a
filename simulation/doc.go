// File: simulation/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

// Package simulation drives a standalone allocator/cell graph without any
// real hypervisor underneath it: one goroutine per simulated CPU worker, an
// event stream reporting allocation/yield/reclaim activity, and a periodic
// heartbeat that logs a snapshot of every cell's masks. It is the harness
// cmd/corealloctl's "simulate" subcommand runs against a loaded topology.
package simulation
