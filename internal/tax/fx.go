package tax

import (
	"github.com/smallbiznis/docflow/internal/tax/service"
	"go.uber.org/fx"
)

var Module = fx.Module("tax.engine",
	fx.Provide(service.NewEngine),
)
