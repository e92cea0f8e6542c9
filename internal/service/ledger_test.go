package service

import (
	"context"
	"sort"
	"strconv"
	"testing"
	"time"

	"pingrank/internal/domain"
	"pingrank/internal/events"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore is an in-memory stand-in for the sqlite repositories. The tx
// fake snapshots it before each operation and restores on error, mirroring
// transactional all-or-nothing semantics.
type fakeStore struct {
	players map[string]domain.Player
	matches map[string]domain.Match
	seq     int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		players: make(map[string]domain.Player),
		matches: make(map[string]domain.Match),
	}
}

func (s *fakeStore) nextID(prefix string) string {
	s.seq++
	return prefix + strconv.Itoa(s.seq)
}

func (s *fakeStore) snapshot() (map[string]domain.Player, map[string]domain.Match) {
	players := make(map[string]domain.Player, len(s.players))
	for k, v := range s.players {
		players[k] = v
	}
	matches := make(map[string]domain.Match, len(s.matches))
	for k, v := range s.matches {
		matches[k] = v
	}
	return players, matches
}

type fakePlayers struct{ s *fakeStore }

func (f fakePlayers) Get(_ context.Context, id string) (*domain.Player, error) {
	p, ok := f.s.players[id]
	if !ok {
		return nil, domain.ErrPlayerNotFound
	}
	return &p, nil
}

func (f fakePlayers) List(context.Context) ([]domain.Player, error) {
	players := make([]domain.Player, 0, len(f.s.players))
	for _, p := range f.s.players {
		players = append(players, p)
	}
	sort.SliceStable(players, func(i, j int) bool {
		if players[i].Rank != players[j].Rank {
			return players[i].Rank < players[j].Rank
		}
		return players[i].JoinedAt.Before(players[j].JoinedAt)
	})
	return players, nil
}

func (f fakePlayers) Count(context.Context) (int, error) {
	return len(f.s.players), nil
}

func (f fakePlayers) Insert(_ context.Context, player *domain.Player) error {
	if player.ID == "" {
		player.ID = f.s.nextID("p")
	}
	f.s.players[player.ID] = *player
	return nil
}

func (f fakePlayers) Update(_ context.Context, player *domain.Player) error {
	if _, ok := f.s.players[player.ID]; !ok {
		return domain.ErrPlayerNotFound
	}
	f.s.players[player.ID] = *player
	return nil
}

func (f fakePlayers) UpdateRank(_ context.Context, id string, rank int) error {
	p, ok := f.s.players[id]
	if !ok {
		return domain.ErrPlayerNotFound
	}
	p.Rank = rank
	f.s.players[id] = p
	return nil
}

func (f fakePlayers) Delete(_ context.Context, id string) error {
	if _, ok := f.s.players[id]; !ok {
		return domain.ErrPlayerNotFound
	}
	delete(f.s.players, id)
	return nil
}

type fakeMatches struct{ s *fakeStore }

func (f fakeMatches) Get(_ context.Context, id string) (*domain.Match, error) {
	m, ok := f.s.matches[id]
	if !ok {
		return nil, domain.ErrMatchNotFound
	}
	return &m, nil
}

func (f fakeMatches) List(_ context.Context, limit int) ([]domain.Match, error) {
	matches := make([]domain.Match, 0, len(f.s.matches))
	for _, m := range f.s.matches {
		matches = append(matches, m)
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Date.After(matches[j].Date)
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

func (f fakeMatches) ListCompletedFor(_ context.Context, playerID string) ([]domain.Match, error) {
	var matches []domain.Match
	for _, m := range f.s.matches {
		if m.Status == domain.MatchCompleted && m.Involves(playerID) {
			matches = append(matches, m)
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		if !matches[i].Date.Equal(matches[j].Date) {
			return matches[i].Date.Before(matches[j].Date)
		}
		return matches[i].ID < matches[j].ID
	})
	return matches, nil
}

func (f fakeMatches) HasScheduledAt(_ context.Context, date time.Time) (bool, error) {
	for _, m := range f.s.matches {
		if m.Status == domain.MatchScheduled && m.Date.Equal(date) {
			return true, nil
		}
	}
	return false, nil
}

func (f fakeMatches) Insert(_ context.Context, match *domain.Match) error {
	if match.ID == "" {
		match.ID = f.s.nextID("m")
	}
	f.s.matches[match.ID] = *match
	return nil
}

func (f fakeMatches) Update(_ context.Context, match *domain.Match) error {
	if _, ok := f.s.matches[match.ID]; !ok {
		return domain.ErrMatchNotFound
	}
	f.s.matches[match.ID] = *match
	return nil
}

func (f fakeMatches) SetCommentary(_ context.Context, id, commentary string) error {
	m, ok := f.s.matches[id]
	if !ok {
		return domain.ErrMatchNotFound
	}
	m.Commentary = commentary
	f.s.matches[id] = m
	return nil
}

func (f fakeMatches) Delete(_ context.Context, id string) error {
	if _, ok := f.s.matches[id]; !ok {
		return domain.ErrMatchNotFound
	}
	delete(f.s.matches, id)
	return nil
}

type fakeTx struct{ s *fakeStore }

func (f fakeTx) RunInTx(ctx context.Context, fn func(ctx context.Context, players domain.PlayerStore, matches domain.MatchStore) error) error {
	players, matches := f.s.snapshot()
	if err := fn(ctx, fakePlayers{f.s}, fakeMatches{f.s}); err != nil {
		f.s.players = players
		f.s.matches = matches
		return err
	}
	return nil
}

type fakePublisher struct {
	published map[string][]*message.Message
}

func newFakePublisher() *fakePublisher {
	return &fakePublisher{published: make(map[string][]*message.Message)}
}

func (p *fakePublisher) Publish(topic string, msgs ...*message.Message) error {
	p.published[topic] = append(p.published[topic], msgs...)
	return nil
}

func (p *fakePublisher) Close() error { return nil }

func newTestLedger(t *testing.T) (*LedgerService, *fakeStore, *fakePublisher) {
	t.Helper()
	store := newFakeStore()
	publisher := newFakePublisher()
	svc := NewLedgerService(fakeTx{store}, fakePlayers{store}, fakeMatches{store}, publisher, zerolog.Nop())
	return svc, store, publisher
}

func seedLadder(store *fakeStore, ratings ...int) []string {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	ids := make([]string, len(ratings))
	for i, rating := range ratings {
		id := store.nextID("p")
		store.players[id] = domain.Player{
			ID:       id,
			Name:     "Player " + id,
			Rating:   rating,
			Rank:     i + 1,
			JoinedAt: base.Add(time.Duration(i) * time.Minute),
		}
		ids[i] = id
	}
	return ids
}

func assertContiguousRanks(t *testing.T, store *fakeStore) {
	t.Helper()
	seen := make(map[int]string)
	for _, p := range store.players {
		prev, dup := seen[p.Rank]
		require.False(t, dup, "rank %d held by both %s and %s", p.Rank, prev, p.ID)
		seen[p.Rank] = p.ID
	}
	for rank := 1; rank <= len(store.players); rank++ {
		require.Contains(t, seen, rank, "missing rank %d", rank)
	}
}

func TestAddPlayerJoinsBottomOfLadder(t *testing.T) {
	svc, store, _ := newTestLedger(t)
	seedLadder(store, 1600, 1580)

	player, err := svc.AddPlayer(context.Background(), "  Linus Bergman ")
	require.NoError(t, err)

	assert.Equal(t, "Linus Bergman", player.Name)
	assert.Equal(t, 1200, player.Rating)
	assert.Equal(t, 3, player.Rank)
	assert.Zero(t, player.Wins)
	assert.Zero(t, player.Losses)
	assert.Zero(t, player.Streak)
	assertContiguousRanks(t, store)
}

func TestAddPlayerRequiresName(t *testing.T) {
	svc, _, _ := newTestLedger(t)
	_, err := svc.AddPlayer(context.Background(), "   ")
	assert.ErrorIs(t, err, domain.ErrNameRequired)
}

func TestRemovePlayerClosesRankGap(t *testing.T) {
	svc, store, _ := newTestLedger(t)
	ids := seedLadder(store, 1600, 1580, 1560, 1540)

	require.NoError(t, svc.RemovePlayer(context.Background(), ids[1]))

	assert.Len(t, store.players, 3)
	assertContiguousRanks(t, store)
	assert.Equal(t, 2, store.players[ids[2]].Rank)
	assert.Equal(t, 3, store.players[ids[3]].Rank)
}

func TestRemovePlayerNotFound(t *testing.T) {
	svc, _, _ := newTestLedger(t)
	assert.ErrorIs(t, svc.RemovePlayer(context.Background(), "nope"), domain.ErrPlayerNotFound)
}

func TestRegisterResultFavouriteWins(t *testing.T) {
	svc, store, _ := newTestLedger(t)
	ids := seedLadder(store, 1200, 1200)

	match, err := svc.RegisterResult(context.Background(), "", ids[0], ids[1], 2, 0)
	require.NoError(t, err)

	winner := store.players[ids[0]]
	loser := store.players[ids[1]]

	assert.Equal(t, 16, match.RatingChange)
	assert.False(t, match.RankSwap)
	assert.Equal(t, domain.MatchCompleted, match.Status)

	assert.Equal(t, 1216, winner.Rating)
	assert.Equal(t, 1, winner.Wins)
	assert.Equal(t, 1, winner.Streak)
	assert.Equal(t, 1, winner.Rank)

	assert.Equal(t, 1184, loser.Rating)
	assert.Equal(t, 1, loser.Losses)
	assert.Equal(t, -1, loser.Streak)
	assert.Equal(t, 2, loser.Rank)
}

func TestRegisterResultUpsetSwapsRanks(t *testing.T) {
	svc, store, _ := newTestLedger(t)
	ids := seedLadder(store, 1220, 1200, 1180)
	top, mid, challenger := ids[0], ids[1], ids[2]

	match, err := svc.RegisterResult(context.Background(), "", challenger, top, 2, 1)
	require.NoError(t, err)

	assert.True(t, match.RankSwap)
	assert.Equal(t, 18, match.RatingChange)

	assert.Equal(t, 1, store.players[challenger].Rank)
	assert.Equal(t, 1198, store.players[challenger].Rating)
	assert.Equal(t, 3, store.players[top].Rank)
	assert.Equal(t, 1202, store.players[top].Rating)
	assert.Equal(t, 2, store.players[mid].Rank)
	assertContiguousRanks(t, store)
}

func TestRegisterResultInvalidScores(t *testing.T) {
	svc, store, _ := newTestLedger(t)
	ids := seedLadder(store, 1200, 1200)

	tests := []struct {
		name        string
		winnerScore int
		loserScore  int
	}{
		{"draw", 2, 2},
		{"winner short of two sets", 1, 0},
		{"winner over two sets", 3, 1},
		{"negative loser score", 2, -1},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := svc.RegisterResult(context.Background(), "", ids[0], ids[1], test.winnerScore, test.loserScore)
			assert.ErrorIs(t, err, domain.ErrInvalidResult)
		})
	}

	// nothing was written
	assert.Empty(t, store.matches)
	assert.Zero(t, store.players[ids[0]].Wins)
}

func TestRegisterResultSamePlayer(t *testing.T) {
	svc, store, _ := newTestLedger(t)
	ids := seedLadder(store, 1200, 1200)

	_, err := svc.RegisterResult(context.Background(), "", ids[0], ids[0], 2, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidResult)
}

func TestRegisterResultUnknownPlayerWritesNothing(t *testing.T) {
	svc, store, _ := newTestLedger(t)
	ids := seedLadder(store, 1200, 1200)

	_, err := svc.RegisterResult(context.Background(), "", ids[0], "ghost", 2, 0)
	assert.ErrorIs(t, err, domain.ErrPlayerNotFound)
	assert.Empty(t, store.matches)
	assert.Zero(t, store.players[ids[0]].Wins)
}

func TestRegisterResultConvertsScheduledMatch(t *testing.T) {
	svc, store, _ := newTestLedger(t)
	ids := seedLadder(store, 1200, 1200)

	slot := time.Date(2026, 3, 5, 17, 0, 0, 0, time.UTC)
	scheduled, err := svc.ScheduleMatch(context.Background(), ids[0], ids[1], slot)
	require.NoError(t, err)

	match, err := svc.RegisterResult(context.Background(), scheduled.ID, ids[1], ids[0], 2, 1)
	require.NoError(t, err)

	assert.Equal(t, scheduled.ID, match.ID)
	assert.Equal(t, domain.MatchCompleted, match.Status)
	assert.Len(t, store.matches, 1)

	// a completed match cannot be completed again
	_, err = svc.RegisterResult(context.Background(), scheduled.ID, ids[0], ids[1], 2, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidResult)
}

func TestRegisterResultRejectsWrongPairing(t *testing.T) {
	svc, store, _ := newTestLedger(t)
	ids := seedLadder(store, 1200, 1200, 1200)

	slot := time.Date(2026, 3, 5, 17, 0, 0, 0, time.UTC)
	scheduled, err := svc.ScheduleMatch(context.Background(), ids[0], ids[1], slot)
	require.NoError(t, err)

	// ids[2] was never part of this booking
	_, err = svc.RegisterResult(context.Background(), scheduled.ID, ids[2], ids[0], 2, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidResult)
	assert.Equal(t, domain.MatchScheduled, store.matches[scheduled.ID].Status)
}

func TestRegisterResultPublishesEvent(t *testing.T) {
	svc, store, publisher := newTestLedger(t)
	ids := seedLadder(store, 1200, 1200)

	match, err := svc.RegisterResult(context.Background(), "", ids[0], ids[1], 2, 0)
	require.NoError(t, err)

	msgs := publisher.published[events.TopicMatchCompleted]
	require.Len(t, msgs, 1)
	assert.Contains(t, string(msgs[0].Payload), match.ID)
	assert.Contains(t, string(msgs[0].Payload), match.WinnerName)
}

func TestRegisterResultOutsideWindow(t *testing.T) {
	svc, store, _ := newTestLedger(t)
	ids := seedLadder(store, 1600, 1580, 1560, 1540, 1520)

	// rank 5 against rank 1 is outside the direct-result window of two
	_, err := svc.RegisterResult(context.Background(), "", ids[4], ids[0], 2, 0)
	assert.ErrorIs(t, err, domain.ErrNotEligible)
	assert.Empty(t, store.matches)
}

func TestScheduleMatchOutsideWindow(t *testing.T) {
	svc, store, _ := newTestLedger(t)
	ids := seedLadder(store, 1600, 1580, 1560, 1540, 1520, 1500, 1480)

	slot := time.Date(2026, 3, 5, 17, 0, 0, 0, time.UTC)
	_, err := svc.ScheduleMatch(context.Background(), ids[6], ids[0], slot)
	assert.ErrorIs(t, err, domain.ErrNotEligible)

	// rank 6 against rank 1 is exactly on the booking window edge
	_, err = svc.ScheduleMatch(context.Background(), ids[5], ids[0], slot)
	assert.NoError(t, err)
}

func TestScheduleMatchSlotConflict(t *testing.T) {
	svc, store, _ := newTestLedger(t)
	ids := seedLadder(store, 1200, 1200, 1200, 1200)

	slot := time.Date(2026, 3, 5, 17, 0, 0, 0, time.UTC)
	_, err := svc.ScheduleMatch(context.Background(), ids[0], ids[1], slot)
	require.NoError(t, err)

	_, err = svc.ScheduleMatch(context.Background(), ids[2], ids[3], slot)
	assert.ErrorIs(t, err, domain.ErrSlotConflict)

	// a different instant on the same day is fine
	_, err = svc.ScheduleMatch(context.Background(), ids[2], ids[3], slot.Add(30*time.Minute))
	assert.NoError(t, err)
}

func TestScheduleMatchSnapshotsNames(t *testing.T) {
	svc, store, _ := newTestLedger(t)
	ids := seedLadder(store, 1200, 1200)

	slot := time.Date(2026, 3, 5, 17, 0, 0, 0, time.UTC)
	match, err := svc.ScheduleMatch(context.Background(), ids[0], ids[1], slot)
	require.NoError(t, err)

	assert.Equal(t, store.players[ids[0]].Name, match.Player1Name)
	assert.Equal(t, store.players[ids[1]].Name, match.Player2Name)
	assert.Equal(t, domain.MatchScheduled, match.Status)
}

func TestDeleteMatchRestoresPlayersExactly(t *testing.T) {
	svc, store, _ := newTestLedger(t)
	ids := seedLadder(store, 1220, 1200, 1180, 1160)
	challenger, top := ids[2], ids[0]

	before, _ := store.snapshot()

	match, err := svc.RegisterResult(context.Background(), "", challenger, top, 2, 1)
	require.NoError(t, err)
	require.True(t, match.RankSwap)

	require.NoError(t, svc.DeleteMatch(context.Background(), match.ID))

	assert.Empty(t, store.matches)
	for id, want := range before {
		got := store.players[id]
		assert.Equal(t, want.Rating, got.Rating, "rating of %s", id)
		assert.Equal(t, want.Rank, got.Rank, "rank of %s", id)
		assert.Equal(t, want.Wins, got.Wins, "wins of %s", id)
		assert.Equal(t, want.Losses, got.Losses, "losses of %s", id)
		assert.Equal(t, want.Streak, got.Streak, "streak of %s", id)
	}
	assertContiguousRanks(t, store)
}

func TestDeleteMatchReplaysStreakFromHistory(t *testing.T) {
	svc, store, _ := newTestLedger(t)
	ids := seedLadder(store, 1200, 1200)
	a, b := ids[0], ids[1]
	ctx := context.Background()

	_, err := svc.RegisterResult(ctx, "", a, b, 2, 0)
	require.NoError(t, err)
	second, err := svc.RegisterResult(ctx, "", a, b, 2, 1)
	require.NoError(t, err)
	third, err := svc.RegisterResult(ctx, "", b, a, 2, 0)
	require.NoError(t, err)

	assert.Equal(t, -1, store.players[a].Streak)
	assert.Equal(t, 1, store.players[b].Streak)

	// deleting b's only win leaves a back on a two-win streak
	require.NoError(t, svc.DeleteMatch(ctx, third.ID))
	assert.Equal(t, 2, store.players[a].Streak)
	assert.Equal(t, -2, store.players[b].Streak)

	// deleting a mid-history win shortens it to one
	require.NoError(t, svc.DeleteMatch(ctx, second.ID))
	assert.Equal(t, 1, store.players[a].Streak)
	assert.Equal(t, -1, store.players[b].Streak)
}

func TestDeleteScheduledMatchHasNoPlayerEffect(t *testing.T) {
	svc, store, _ := newTestLedger(t)
	ids := seedLadder(store, 1200, 1200)

	slot := time.Date(2026, 3, 5, 17, 0, 0, 0, time.UTC)
	match, err := svc.ScheduleMatch(context.Background(), ids[0], ids[1], slot)
	require.NoError(t, err)

	before, _ := store.snapshot()
	require.NoError(t, svc.DeleteMatch(context.Background(), match.ID))

	assert.Empty(t, store.matches)
	assert.Equal(t, before, store.players)
}

func TestDeleteMatchNotFound(t *testing.T) {
	svc, _, _ := newTestLedger(t)
	assert.ErrorIs(t, svc.DeleteMatch(context.Background(), "nope"), domain.ErrMatchNotFound)
}

func TestEligibleOpponentsUsesWindow(t *testing.T) {
	svc, store, _ := newTestLedger(t)
	ids := seedLadder(store, 1600, 1580, 1560, 1540, 1520, 1500, 1480, 1460)
	ctx := context.Background()

	opponents, err := svc.EligibleOpponents(ctx, ids[0], 2)
	require.NoError(t, err)
	assert.Len(t, opponents, 2)

	// non-positive window falls back to the booking window of five
	opponents, err = svc.EligibleOpponents(ctx, ids[0], 0)
	require.NoError(t, err)
	assert.Len(t, opponents, 5)

	_, err = svc.EligibleOpponents(ctx, "ghost", 2)
	assert.ErrorIs(t, err, domain.ErrPlayerNotFound)
}

func TestLadderStaysContiguousUnderMixedOperations(t *testing.T) {
	svc, store, _ := newTestLedger(t)
	ctx := context.Background()

	for _, name := range []string{"Azhar", "Viktor", "David", "Thomas", "Pierre"} {
		_, err := svc.AddPlayer(ctx, name)
		require.NoError(t, err)
	}

	players, err := svc.ListPlayers(ctx)
	require.NoError(t, err)

	first, err := svc.RegisterResult(ctx, "", players[4].ID, players[2].ID, 2, 0)
	require.NoError(t, err)
	_, err = svc.RegisterResult(ctx, "", players[1].ID, players[0].ID, 2, 1)
	require.NoError(t, err)

	require.NoError(t, svc.RemovePlayer(ctx, players[3].ID))
	assertContiguousRanks(t, store)

	require.NoError(t, svc.DeleteMatch(ctx, first.ID))
	assertContiguousRanks(t, store)
}

func TestSeedPlayers(t *testing.T) {
	svc, store, _ := newTestLedger(t)
	ctx := context.Background()

	count, err := svc.SeedPlayers(ctx, []string{"Azhar Ahmad", " Viktor Molin ", "", "David Hesslegård"})
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	players, err := svc.ListPlayers(ctx)
	require.NoError(t, err)
	require.Len(t, players, 3)
	assert.Equal(t, 1600, players[0].Rating)
	assert.Equal(t, 1580, players[1].Rating)
	assert.Equal(t, 1560, players[2].Rating)
	assert.Equal(t, "Viktor Molin", players[1].Name)
	assertContiguousRanks(t, store)

	// refuses to run twice
	_, err = svc.SeedPlayers(ctx, []string{"Someone"})
	assert.ErrorIs(t, err, domain.ErrRosterNotEmpty)
}
