package chat

import (
	"github.com/smallbiznis/quoteshare/internal/chat/repository"
	"github.com/smallbiznis/quoteshare/internal/chat/service"
	"go.uber.org/fx"
)

var Module = fx.Module("chat.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
