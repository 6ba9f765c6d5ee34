package customer

import (
	"github.com/smallbiznis/workrate/internal/customer/repository"
	"github.com/smallbiznis/workrate/internal/customer/service"
	"go.uber.org/fx"
)

var Module = fx.Module("customer",
	fx.Provide(
		repository.Provide,
		service.New,
	),
)
