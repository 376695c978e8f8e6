// Package pipeline provides lazy, pull-based stream stages. Nothing runs
// until Collect pulls values through.
//
// Parallel is an unordered worker pool; pair it with Enumerate when the
// caller needs input order back:
//
//	indexed := pipeline.Enumerate(pipeline.FromSlice(segments))
//	embedded := pipeline.Parallel(indexed, workers, embedOne)
//	out, err := pipeline.Collect(ctx, embedded)
//	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
package pipeline
