// Package version reports which speakerid build is running. Release
// builds stamp it at link time:
//
//	go build -ldflags "-X github.com/kbukum/speakerid/version.Version=v1.4.0" ./cmd/speakerid
package version
