package bootstrap

import "github.com/kbukum/speakerid/config"

// Config is satisfied by any pointer to a struct embedding
// config.ServiceConfig that also defaults and validates its own sections.
type Config interface {
	GetServiceConfig() *config.ServiceConfig
	ApplyDefaults()
	Validate() error
}
