package pricing

import (
	"github.com/smallbiznis/workrate/internal/pricing/service"
	"go.uber.org/fx"
)

var Module = fx.Module("pricing",
	fx.Provide(
		service.New,
	),
)
