// Package table loads delimited text files, Excel workbooks and
// (experimentally) EDF signal captures into an in-memory table of named
// columns. Loading tries an ordered list of parser and encoding
// attempts and fails with ErrUnreadableFile only after every attempt is
// exhausted.
package table
