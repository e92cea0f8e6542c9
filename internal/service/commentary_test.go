package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"pingrank/internal/constants"
	"pingrank/internal/domain"
	"pingrank/internal/events"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGenerator struct {
	text  string
	err   error
	calls int
}

func (g *fakeGenerator) Generate(_ context.Context, _ events.MatchCompleted) (string, error) {
	g.calls++
	return g.text, g.err
}

func completedEventMessage(t *testing.T, matchID string) *message.Message {
	t.Helper()
	payload, err := json.Marshal(events.MatchCompleted{
		MatchID:     matchID,
		WinnerName:  "Azhar Ahmad",
		LoserName:   "Viktor Molin",
		WinnerScore: 2,
		LoserScore:  1,
	})
	require.NoError(t, err)
	return message.NewMessage(watermill.NewUUID(), payload)
}

func TestCommentaryWorkerAttachesGeneratedText(t *testing.T) {
	store := newFakeStore()
	store.matches["m1"] = domain.Match{ID: "m1", Status: domain.MatchCompleted}

	generator := &fakeGenerator{text: "Azhar snatches the crown in three sets!"}
	worker := NewCommentaryWorker(nil, generator, fakeMatches{store}, time.Second, zerolog.Nop())

	worker.Handle(context.Background(), completedEventMessage(t, "m1"))

	assert.Equal(t, 1, generator.calls)
	assert.Equal(t, generator.text, store.matches["m1"].Commentary)
}

func TestCommentaryWorkerFallsBackOnGeneratorError(t *testing.T) {
	store := newFakeStore()
	store.matches["m1"] = domain.Match{ID: "m1", Status: domain.MatchCompleted}

	generator := &fakeGenerator{err: errors.New("upstream timeout")}
	worker := NewCommentaryWorker(nil, generator, fakeMatches{store}, time.Second, zerolog.Nop())

	worker.Handle(context.Background(), completedEventMessage(t, "m1"))

	assert.Equal(t, constants.CommentaryFallback, store.matches["m1"].Commentary)
}

func TestCommentaryWorkerIgnoresBadPayload(t *testing.T) {
	store := newFakeStore()
	store.matches["m1"] = domain.Match{ID: "m1", Status: domain.MatchCompleted}

	generator := &fakeGenerator{text: "never used"}
	worker := NewCommentaryWorker(nil, generator, fakeMatches{store}, time.Second, zerolog.Nop())

	worker.Handle(context.Background(), message.NewMessage(watermill.NewUUID(), []byte("not json")))

	assert.Zero(t, generator.calls)
	assert.Empty(t, store.matches["m1"].Commentary)
}

func TestCommentaryWorkerToleratesMissingMatch(t *testing.T) {
	store := newFakeStore()

	generator := &fakeGenerator{text: "ghost match"}
	worker := NewCommentaryWorker(nil, generator, fakeMatches{store}, time.Second, zerolog.Nop())

	// the match was deleted between publish and consume; nothing to do
	worker.Handle(context.Background(), completedEventMessage(t, "gone"))
	assert.Equal(t, 1, generator.calls)
}
