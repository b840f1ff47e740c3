// internal/app/bootstrap/hooks.go
package bootstrap

import (
	"github.com/dalemusser/waffle/app"
)

// Hooks wires the API into waffle's application lifecycle.
var Hooks = app.Hooks[AppConfig, DBDeps]{
	Name:           "calendario",
	LoadConfig:     LoadConfig,
	ValidateConfig: ValidateConfig,
	ConnectDB:      ConnectDB,
	EnsureSchema:   EnsureSchema,
	Startup:        Startup,
	BuildHandler:   BuildHandler,
	OnReady:        OnReady,
	Shutdown:       Shutdown,
}
