// Package attribution runs the speaker attribution pipeline.
//
// An Engine takes a recording and its diarized segments and labels every
// usable segment with an enrolled identity or an unknown placeholder:
//
//  1. segments with blank text or below the minimum duration are skipped;
//  2. the remaining segments are sliced and embedded in parallel;
//  3. decisions are made sequentially in chronological order, either per
//     segment (with optional smoothing) or per diarization cluster;
//  4. rejected segments take the placeholder of their cluster;
//  5. consecutive segments with the same label are merged into turns.
//
// A segment that cannot be embedded is logged, counted, and skipped. A
// run either returns a complete Result or an error.
//
// Service keeps an enrolled set and embedder warm for repeated runs and
// backs the HTTP Handler.
package attribution
