package entities

import (
	"go.uber.org/fx"

	"github.com/Tatenda/fullstori/internal/storage"
)

// Module provides entity dependencies
var Module = fx.Module("entities",
	fx.Provide(NewStore),
	fx.Provide(func(s *storage.Service) AvatarStorage { return s }),
	fx.Provide(NewService),
	fx.Provide(NewHandler),
	fx.Invoke(RegisterRoutes),
)
