package order

import (
	"github.com/smallbiznis/workrate/internal/order/repository"
	"github.com/smallbiznis/workrate/internal/order/service"
	"go.uber.org/fx"
)

var Module = fx.Module("order",
	fx.Provide(
		repository.Provide,
		service.New,
	),
)
