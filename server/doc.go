// Package server hosts the attribution API for "speakerid serve".
//
// A Server wraps a Gin engine in server-level middleware (see
// server/middleware) and serves it over HTTP/1.1 and h2c. HealthRoutes adds
// /health, /ready and /version; API packages register their own routes on
// Engine and wrap expensive ones with Guard.
package server
