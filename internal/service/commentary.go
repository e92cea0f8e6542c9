package service

import (
	"context"
	"encoding/json"
	"time"

	"pingrank/internal/constants"
	"pingrank/internal/domain"
	"pingrank/internal/events"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog"
)

// Generator produces a short commentary line for a completed match.
type Generator interface {
	Generate(ctx context.Context, ev events.MatchCompleted) (string, error)
}

// CommentaryWorker consumes match.completed events and patches the match
// record with generated commentary. It runs detached from the registering
// transaction: a slow or failing generator only ever costs the annotation,
// which degrades to a fixed placeholder.
type CommentaryWorker struct {
	subscriber message.Subscriber
	generator  Generator
	matches    domain.MatchStore
	timeout    time.Duration
	logger     zerolog.Logger
}

func NewCommentaryWorker(
	subscriber message.Subscriber,
	generator Generator,
	matches domain.MatchStore,
	timeout time.Duration,
	logger zerolog.Logger,
) *CommentaryWorker {
	if timeout <= 0 {
		timeout = constants.CommentaryTimeout
	}
	return &CommentaryWorker{
		subscriber: subscriber,
		generator:  generator,
		matches:    matches,
		timeout:    timeout,
		logger:     logger,
	}
}

// Run blocks consuming events until ctx is cancelled.
func (w *CommentaryWorker) Run(ctx context.Context) error {
	msgs, err := w.subscriber.Subscribe(ctx, events.TopicMatchCompleted)
	if err != nil {
		return err
	}

	w.logger.Info().Str("topic", events.TopicMatchCompleted).Msg("commentary worker started")
	for msg := range msgs {
		w.Handle(ctx, msg)
		msg.Ack()
	}
	return nil
}

// Handle annotates a single match. Failures are swallowed after logging;
// the ledger's correctness never depends on this path.
func (w *CommentaryWorker) Handle(ctx context.Context, msg *message.Message) {
	var ev events.MatchCompleted
	if err := json.Unmarshal(msg.Payload, &ev); err != nil {
		w.logger.Error().Err(err).Str("message_id", msg.UUID).Msg("invalid match.completed payload")
		return
	}

	genCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	text, err := w.generator.Generate(genCtx, ev)
	if err != nil {
		w.logger.Warn().Err(err).Str("match_id", ev.MatchID).Msg("commentary generation failed, using fallback")
		text = constants.CommentaryFallback
	}

	if err := w.matches.SetCommentary(ctx, ev.MatchID, text); err != nil {
		w.logger.Warn().Err(err).Str("match_id", ev.MatchID).Msg("failed to store commentary")
		return
	}

	w.logger.Debug().Str("match_id", ev.MatchID).Msg("commentary attached")
}
