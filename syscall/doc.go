// File: syscall/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Package syscall realizes spec.md §6's syscall surface as a Go dispatch
// table: Dispatcher.Dispatch(op, args) routes to the allocator and cell
// packages and translates capability/argument errors into the fixed exit
// code set instead of a Go error (spec.md §7: "capability and argument
// errors are caught at the syscall boundary and translated to exit codes").
package syscall
