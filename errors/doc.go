// Package errors provides the structured error type shared by every
// speakerid package. Errors carry a machine-readable code, an HTTP status
// for the API surface, and a retryable flag consulted by the sidecar retry
// loop. Attribution-specific codes (NO_ENROLLMENT, MODEL_UNAVAILABLE,
// EMPTY_AUDIO, MEDIA_FAILED) sit beside the generic ones.
package errors
