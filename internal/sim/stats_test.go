package sim

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/psychodicenamic/dicesim/internal/game"
)

func sampleDebates() (game.DebateOutcome, game.DebateOutcome) {
	pair := game.Insult{Kind: game.KindSolid, Pattern: game.PatternPair, Faces: []int{3, 3}}
	trip := game.Insult{Kind: game.KindSurprising, Pattern: game.PatternTriplet, Faces: []int{5, 5, 5}, Echo: 1}
	d1 := game.DebateOutcome{Debate: 1, Winner: 0, Players: [2]game.PlayerOutcome{
		{NetDamage: 4, Rolls: 2, Insults: []game.Insult{pair}},
		{NetDamage: 0, Rolls: 3, Fumbled: true},
	}}
	d2 := game.DebateOutcome{Debate: 1, Winner: 1, Players: [2]game.PlayerOutcome{
		{NetDamage: 2, Rolls: 1, Insults: []game.Insult{pair}},
		{NetDamage: 6, Rolls: 2, PerfectBank: true, EchoSummoned: 1, Healed: 2, Insults: []game.Insult{trip}},
	}}
	return d1, d2
}

func TestStatsRecord(t *testing.T) {
	d1, d2 := sampleDebates()
	s := NewStats("A", "B", ModeDebate, 7)
	s.Record(0, []game.DebateOutcome{d1}, false)
	s.Record(1, []game.DebateOutcome{d2}, false)

	assert.Equal(t, int64(2), s.Trials)
	assert.Equal(t, int64(2), s.Debates)
	assert.Equal(t, int64(1), s.DebatesWithFumble)
	assert.Equal(t, int64(6), s.Players[0].Damage)
	assert.Equal(t, int64(20), s.Players[0].DamageSq)
	assert.Equal(t, int64(2), s.Players[0].Kinds["Solid"])
	assert.Equal(t, int64(1), s.Players[1].Patterns["Triplet"])
	assert.Equal(t, int64(1), s.Players[1].PerfectBanks)
	assert.Equal(t, int64(2), s.Players[1].Healing)

	assert.InDelta(t, 0.5, s.WinRate(0), 1e-9)
	assert.InDelta(t, 0.5, s.FumbleRate(1), 1e-9)
	assert.InDelta(t, 3.0, s.MeanDamage(0), 1e-9)
	assert.InDelta(t, 2.0, s.DamageVariance(0), 1e-9)
	assert.InDelta(t, math.Sqrt2, s.DamageStdDev(0), 1e-9)
	assert.InDelta(t, 18.0, s.DamageVariance(1), 1e-9)
}

func TestStatsKnockoutsCountForWinner(t *testing.T) {
	d1, _ := sampleDebates()
	s := NewStats("A", "B", ModeMatch, 7)
	s.Record(1, []game.DebateOutcome{d1, d1, d1}, true)

	assert.Equal(t, int64(1), s.Players[1].Knockouts)
	assert.Equal(t, int64(0), s.Players[0].Knockouts)
	assert.Equal(t, int64(3), s.Debates)
	assert.Equal(t, "match", s.Mode)
}

func TestStatsMergeAndReset(t *testing.T) {
	d1, d2 := sampleDebates()
	a := NewStats("A", "B", ModeDebate, 7)
	a.Record(0, []game.DebateOutcome{d1}, false)
	b := NewStats("A", "B", ModeDebate, 7)
	b.Record(1, []game.DebateOutcome{d2}, false)
	b.Record(-1, []game.DebateOutcome{d1}, false)

	a.Merge(b)
	assert.Equal(t, int64(3), a.Trials)
	assert.Equal(t, int64(1), a.Ties)
	assert.Equal(t, int64(1), a.Players[0].Wins)
	assert.Equal(t, int64(1), a.Players[1].Wins)
	assert.Equal(t, int64(10), a.Players[0].Damage)
	assert.Equal(t, int64(3), a.Players[0].Kinds["Solid"])

	a.Reset()
	assert.Equal(t, int64(0), a.Trials)
	assert.Equal(t, int64(0), a.Players[0].Damage)
	assert.Empty(t, a.Players[0].Kinds)
	assert.Equal(t, "A", a.Players[0].Name)
	assert.Equal(t, int64(7), a.Seed)
}

func TestStatsEmptyRates(t *testing.T) {
	s := NewStats("A", "B", ModeDebate, 1)
	assert.Zero(t, s.WinRate(0))
	assert.Zero(t, s.MeanDamage(1))
	assert.Zero(t, s.DamageVariance(0))
	lo, hi := s.WinRateInterval(0, 1.96)
	assert.Equal(t, 0.0, lo)
	assert.Equal(t, 1.0, hi)
}

func TestWinRateInterval(t *testing.T) {
	s := NewStats("A", "B", ModeDebate, 1)
	s.Trials = 100
	s.Players[0].Wins = 50
	lo, hi := s.WinRateInterval(0, 1.96)
	assert.InDelta(t, 0.5, (lo+hi)/2, 1e-9)
	assert.InDelta(t, 0.404, lo, 0.001)
	assert.InDelta(t, 0.596, hi, 0.001)
}

func TestStatsMetrics(t *testing.T) {
	d1, d2 := sampleDebates()
	s := NewStats("A", "B", ModeDebate, 7)
	s.Record(0, []game.DebateOutcome{d1}, false)
	s.Record(1, []game.DebateOutcome{d2}, false)

	m := s.Metrics()
	assert.InDelta(t, 0.5, m["win_rate_a"], 1e-9)
	assert.InDelta(t, 1.0, m["banks_per_debate_a_solid"], 1e-9)
	assert.InDelta(t, 0.5, m["banks_per_debate_b_surprising"], 1e-9)
	assert.InDelta(t, 2.5, m["mean_rolls_b"], 1e-9)
	assert.Contains(t, m, "banks_per_debate_b_astonishing")
}

func TestStatsJSONOmitsWorkers(t *testing.T) {
	s := NewStats("A", "B", ModeDebate, 7)
	s.Workers = 12
	data, err := s.JSON()
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.NotContains(t, raw, "workers")
	assert.NotContains(t, raw, "Workers")
	assert.Equal(t, float64(7), raw["seed"])
}

func TestDeriveSeedDistinct(t *testing.T) {
	seen := make(map[int64]int64)
	for i := int64(0); i < 5000; i++ {
		s := DeriveSeed(42, i)
		if prev, ok := seen[s]; ok {
			t.Fatalf("Expected distinct seeds, got a collision between %d and %d", prev, i)
		}
		seen[s] = i
	}
	if DeriveSeed(42, 3) != DeriveSeed(42, 3) {
		t.Error("Expected DeriveSeed to be deterministic")
	}
	if DeriveSeed(42, 3) == DeriveSeed(43, 3) {
		t.Error("Expected different run seeds to give different trial seeds")
	}
}

func TestTrialRandsIndependentStreams(t *testing.T) {
	r := trialRands(99, 5)
	same := true
	for i := 0; i < 16; i++ {
		if r[0].Intn(1<<30) != r[1].Intn(1<<30) {
			same = false
		}
	}
	if same {
		t.Error("Expected the two players to draw from different streams")
	}
}

func TestNewSeedNonZero(t *testing.T) {
	for i := 0; i < 8; i++ {
		s, err := NewSeed()
		require.NoError(t, err)
		assert.NotZero(t, s)
	}
}
