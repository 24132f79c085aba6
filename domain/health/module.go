package health

import (
	"go.uber.org/fx"
)

// Module provides health, readiness and diagnostics endpoints.
var Module = fx.Module("health",
	fx.Provide(NewHandler),
	fx.Invoke(RegisterRoutes),
)
