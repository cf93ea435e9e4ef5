// Package aggregates declares the write contracts that own invariants spanning
// several rows, and the error codes those writes report.
package aggregates
