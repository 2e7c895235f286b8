package bootstrap

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	appconfig "github.com/wolfman30/carefront-intake/internal/config"
	"github.com/wolfman30/carefront-intake/internal/events"
	"github.com/wolfman30/carefront-intake/pkg/logging"
)

// EventFanout is the publisher handed to the orchestrator plus whatever
// background delivery it needs.
type EventFanout struct {
	Publisher events.Publisher
	Deliverer *events.Deliverer
	rabbit    *events.RabbitPublisher
}

// Run drives outbox delivery until ctx ends; a no-op without an outbox.
func (f *EventFanout) Run(ctx context.Context) {
	if f == nil || f.Deliverer == nil {
		return
	}
	f.Deliverer.Start(ctx)
}

func (f *EventFanout) Close() error {
	if f == nil || f.rabbit == nil {
		return nil
	}
	return f.rabbit.Close()
}

// BuildEventFanout picks how domain events leave the process:
//   - RABBITMQ_URL and a postgres pool: write to the outbox, deliver to RabbitMQ
//   - RABBITMQ_URL only: publish to RabbitMQ directly
//   - otherwise: log events
//
// An unreachable broker degrades to logging rather than blocking startup.
func BuildEventFanout(cfg *appconfig.Config, pool *pgxpool.Pool, logger *logging.Logger) *EventFanout {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg == nil || strings.TrimSpace(cfg.RabbitMQURL) == "" {
		logger.Info("no event broker configured; events are logged")
		return &EventFanout{Publisher: events.NewLogPublisher(logger)}
	}

	rabbit, err := events.DialRabbit(cfg.RabbitMQURL, logger)
	if err != nil {
		logger.Error("rabbitmq unavailable; events are logged", "error", err)
		return &EventFanout{Publisher: events.NewLogPublisher(logger)}
	}
	if pool == nil {
		logger.Info("events published to rabbitmq")
		return &EventFanout{Publisher: rabbit, rabbit: rabbit}
	}

	outbox := events.NewOutboxStore(pool)
	logger.Info("events written to outbox and delivered to rabbitmq")
	return &EventFanout{
		Publisher: outbox,
		Deliverer: events.NewDeliverer(outbox, rabbit, logger.WithComponent("outbox")),
		rabbit:    rabbit,
	}
}
