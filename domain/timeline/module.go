package timeline

import (
	"go.uber.org/fx"
)

// Module provides timeline dependencies.
var Module = fx.Module("timeline",
	fx.Provide(NewStore),
	fx.Provide(NewService),
	fx.Provide(NewHandler),
	fx.Invoke(RegisterRoutes),
)
