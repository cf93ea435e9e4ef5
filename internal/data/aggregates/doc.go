// Package aggregates implements the write boundaries declared in
// internal/domain/aggregates on top of gorm. A snapshot and its region rows
// are inserted in one transaction; driver errors are mapped onto aggregate
// error codes so callers can tell a duplicate scan from a broken database.
package aggregates
