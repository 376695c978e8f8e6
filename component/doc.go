// Package component defines lifecycle-managed parts of a speakerid process.
//
// The embedding extractor, the scratch workspace, the telemetry providers
// and the HTTP server are components. A Registry starts them in
// registration order, stops them in reverse and collects their health.
// Describable and RouteProvider feed the startup summary.
package component
