// Package enrollment builds the reference set of known speakers.
//
// An Aggregator scans a directory of labeled recordings, groups files by
// identity key, drops clips shorter than the minimum enrollment duration,
// embeds the survivors, and averages them into one Identity per key.
//
//	agg := enrollment.NewAggregator(loader, embedder, enrollment.WithMinClipSeconds(30))
//	set, report, err := agg.Build(ctx, "enroll/")
package enrollment
