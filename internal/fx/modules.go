package fx

import (
	"pingrank/internal/commentary"
	"pingrank/internal/config"
	"pingrank/internal/database"
	"pingrank/internal/domain"
	"pingrank/internal/events"
	"pingrank/internal/logger"
	"pingrank/internal/repository"
	"pingrank/internal/server"
	"pingrank/internal/service"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

func providePlayerStore(r *repository.PlayerRepository) domain.PlayerStore { return r }
func provideMatchStore(r *repository.MatchRepository) domain.MatchStore    { return r }
func provideTxManager(m *repository.TxManager) domain.TxManager            { return m }
func provideGenerator(c *commentary.Client) service.Generator              { return c }
func providePublisher(ps *gochannel.GoChannel) message.Publisher           { return ps }
func provideSubscriber(ps *gochannel.GoChannel) message.Subscriber         { return ps }

func provideCommentaryWorker(
	cfg *config.Config,
	subscriber message.Subscriber,
	generator service.Generator,
	matches domain.MatchStore,
	log zerolog.Logger,
) *service.CommentaryWorker {
	return service.NewCommentaryWorker(subscriber, generator, matches, cfg.CommentaryTimeout, log)
}

var Module = fx.Options(
	fx.Provide(logger.New),
	fx.Provide(config.Load),
	fx.Provide(database.New),
	// repos
	fx.Provide(repository.NewPlayerRepository),
	fx.Provide(repository.NewMatchRepository),
	fx.Provide(repository.NewTxManager),
	fx.Provide(providePlayerStore),
	fx.Provide(provideMatchStore),
	fx.Provide(provideTxManager),
	// events + commentary
	fx.Provide(events.NewPubSub),
	fx.Provide(providePublisher),
	fx.Provide(provideSubscriber),
	fx.Provide(commentary.NewClient),
	fx.Provide(provideGenerator),
	// svc
	fx.Provide(service.NewLedgerService),
	fx.Provide(provideCommentaryWorker),
	// server
	fx.Provide(server.New),
)
