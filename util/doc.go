// Package util holds small text and size helpers: whitespace and bracket
// normalization for speaker names, and byte-size parsing for config values.
package util
