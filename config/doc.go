// File: config/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Package config loads and validates the static habitat topology (the
// CPU-count and per-cell core assignments carved at boot, spec.md §4.1's
// init_habitat and §4.2's update) from YAML, and watches the source file for
// changes the way the teacher's control package propagates hot-reloads.
package config
