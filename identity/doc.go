// Package identity defines how enrollment identities are named.
//
// An identity key is derived from an enrollment filename by a total,
// pure grammar (see KeyFromFilename) so that several clips of the same
// person collapse onto one key. The Directory resolves keys to the
// human-readable names shown in transcripts.
package identity
