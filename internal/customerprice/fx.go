package customerprice

import (
	"github.com/smallbiznis/workrate/internal/customerprice/repository"
	"github.com/smallbiznis/workrate/internal/customerprice/service"
	"go.uber.org/fx"
)

var Module = fx.Module("customerprice",
	fx.Provide(
		repository.Provide,
		service.New,
	),
)
