// Package store persists analysis run history in a Sqlite database.
//
// Each call to the analysis service produces a Run record: what file
// was analyzed, how many channels and pulses were found, where the
// report was written, and whether the run succeeded. The store keeps
// separate lazily-opened write and read-only connections, with WAL
// journaling on the write side.
package store
