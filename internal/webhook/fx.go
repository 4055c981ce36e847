package webhook

import (
	"github.com/smallbiznis/stripesync/internal/webhook/dedupe"
	"github.com/smallbiznis/stripesync/internal/webhook/domain"
	"github.com/smallbiznis/stripesync/internal/webhook/eventlog"
	"github.com/smallbiznis/stripesync/internal/webhook/service"
	"github.com/smallbiznis/stripesync/internal/webhook/verifier"
	"go.uber.org/fx"
)

var Module = fx.Module("webhook.service",
	fx.Provide(eventlog.Provide),
	fx.Provide(verifier.Provide),
	fx.Provide(dedupe.NewClient),
	fx.Provide(dedupe.New),
	fx.Provide(func(c *dedupe.Cache) domain.Deduplicator { return c }),
	fx.Provide(service.NewService),
)
