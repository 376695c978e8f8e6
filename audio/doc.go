// Package audio holds in-memory PCM clips and the WAV codec used to move
// them between the media toolchain, the embedding backends, and tests.
//
// Every embedding is computed on mono audio at one fixed sample rate.
// Clip.Normalize produces that form; extractors call it before inference.
package audio
