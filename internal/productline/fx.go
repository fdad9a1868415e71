package productline

import "go.uber.org/fx"

var Module = fx.Module("productline",
	fx.Provide(NewHolder),
)
