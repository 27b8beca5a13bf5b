// Package store provides SQLite-backed custom-field metadata.
//
// Each company declares custom fields with a name, a type and a visibility
// level. The engine reads two things from here before compiling a report:
// which custom fields a caller may query and which are stored as arrays.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads while the CLI seeds fields
//   - synchronous=NORMAL
//   - busy_timeout=5000
//   - foreign_keys=ON
//
// All list queries order by name with COLLATE BINARY so output is stable.
package store
