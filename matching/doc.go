// Package matching decides which enrolled identity, if any, spoke a
// segment.
//
// Each segment embedding is scored against every identity by cosine
// similarity. A confidence gate accepts the top candidate only when its
// score clears SimilarityThreshold and it leads the runner-up by at least
// MarginThreshold; anything else is rejected to unknown. Smoothing
// optionally penalizes switching away from the last accepted identity.
// Session carries that state across one chronological pass.
//
// The cluster strategy (Vote) pools scores across every segment of one
// diarization cluster and decides once for the whole cluster.
package matching
