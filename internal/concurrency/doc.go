// File: internal/concurrency/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// High-performance concurrency primitives for the core-allocator simulation
// driver: CPU/NUMA pinning and topology probes, the ring buffer backing the
// simulation package's event stream, and the due-time timer Scheduler under
// its heartbeat. Cross-platform (Linux/Windows).
package concurrency
