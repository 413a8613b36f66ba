package service

import (
	"log/slog"

	redisx "github.com/tablyhq/tably/internal/redis"
	redisrepo "github.com/tablyhq/tably/internal/repository/redis"
	"github.com/tablyhq/tably/internal/service/analytics"
	"github.com/tablyhq/tably/internal/service/tables"
	"github.com/tablyhq/tably/internal/service/visitors"
)

type Services struct {
	Tables    *tables.Service
	Visitors  *visitors.Service
	Analytics *analytics.Service
}

type Config struct {
	Tables    tables.Config
	Visitors  visitors.Config
	Analytics analytics.Config
}

func NewServices(
	tableStore *redisrepo.TableStore,
	visitorStore *redisrepo.VisitorStore,
	pubsub *redisx.TablesPubSub,
	logger *slog.Logger,
	cfg Config,
) *Services {
	visitorSvc := visitors.New(visitorStore, cfg.Visitors)

	return &Services{
		Tables:    tables.New(tableStore, visitorSvc, pubsub, logger, cfg.Tables),
		Visitors:  visitorSvc,
		Analytics: analytics.New(visitorSvc, cfg.Analytics),
	}
}
