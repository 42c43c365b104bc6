package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MarketSim/internal/domain/models"
)

var itMid = models.Profile{Size: models.MidCap, Sector: "it"}

func TestSession_RequiresInitialize(t *testing.T) {
	s := newTestSession()

	_, err := s.NextCandle(t.Context())
	assert.ErrorIs(t, err, ErrNotInitialized)
	_, err = s.Intraday(t.Context(), 5)
	assert.ErrorIs(t, err, ErrNotInitialized)
	_, err = s.StoryContext()
	assert.ErrorIs(t, err, ErrNotInitialized)
	_, err = s.Summary()
	assert.ErrorIs(t, err, ErrNotInitialized)
	assert.ErrorIs(t, s.StartAuto(t.Context()), ErrNotInitialized)
	assert.False(t, s.Status().Initialized)
}

func TestSession_InitializeRejectsUnknownSize(t *testing.T) {
	_, err := newTestSession().Initialize(models.Profile{Size: "mega-cap", Sector: "it"}, 0)
	assert.ErrorIs(t, err, ErrUnknownSizeTier)
}

func TestSession_InitializeAndAdvance(t *testing.T) {
	sink := &captureSink{}
	s := newTestSession(WithSink(sink))

	st, err := s.Initialize(itMid, 0)
	require.NoError(t, err)
	assert.True(t, st.Initialized)
	assert.NotEmpty(t, st.RunID)
	assert.Len(t, st.State.HistoricalData, 30)
	assert.Equal(t, 1, st.State.CurrentDay)

	bar, err := s.NextCandle(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "2026-10-16", bar.Time)
	assert.Equal(t, bar.Close, s.Price().CurrentPrice)
	assert.Equal(t, 2, s.Price().CurrentDay)

	evs := sink.events()
	require.Len(t, evs, 1)
	assert.Equal(t, st.RunID, evs[0].RunID)
	assert.Equal(t, models.KindDaily, evs[0].Kind)
	assert.Equal(t, "it", evs[0].Sector)
	assert.Equal(t, models.MidCap, evs[0].SizeTier)
	assert.Equal(t, bar, evs[0].Candle)
	assert.Equal(t, testNow, evs[0].GeneratedAt)
}

func TestSession_SeedIsReproducible(t *testing.T) {
	run := func() []models.CandlestickData {
		s := newTestSession()
		_, err := s.Initialize(itMid, 42)
		require.NoError(t, err)
		for i := 0; i < 5; i++ {
			_, err := s.NextCandle(context.Background())
			require.NoError(t, err)
		}
		return s.History(0)
	}
	assert.Equal(t, run(), run())
}

func TestSession_EventsPersistUntilCleared(t *testing.T) {
	s := newTestSession()
	_, err := s.Initialize(itMid, 0)
	require.NoError(t, err)

	evs, err := s.AddEvent(models.CompanyEvent{Type: models.EventEarnings, Subtype: "sig-beat", Impact: 1})
	require.NoError(t, err)
	assert.Len(t, evs, 1)

	_, err = s.NextCandle(t.Context())
	require.NoError(t, err)
	assert.Len(t, s.Status().State.ActiveEvents, 1)

	s.ClearEvents()
	assert.Empty(t, s.Status().State.ActiveEvents)
}

func TestSession_ClearEventsAfterCandle(t *testing.T) {
	s := newTestSession(WithClearEventsAfterCandle(true))
	_, err := s.Initialize(itMid, 0)
	require.NoError(t, err)

	_, err = s.AddEvent(models.CompanyEvent{Type: models.EventNews, Subtype: "contract-win"})
	require.NoError(t, err)
	_, err = s.NextCandle(t.Context())
	require.NoError(t, err)
	assert.Empty(t, s.Status().State.ActiveEvents)
}

func TestSession_TriggerEventAppliesOnce(t *testing.T) {
	sink := &captureSink{}
	s := newTestSession(WithSink(sink))
	_, err := s.Initialize(itMid, 0)
	require.NoError(t, err)

	_, err = s.TriggerEvent(t.Context(), models.CompanyEvent{Type: models.EventShock, Subtype: "geopolitical"})
	require.NoError(t, err)
	assert.Empty(t, s.Status().State.ActiveEvents)

	evs := sink.events()
	require.Len(t, evs, 1)
	assert.Equal(t, 1, evs[0].Events)
	assert.InDelta(t, 0.8, evs[0].Impact, 1e-9)
}

func TestSession_ValidatesLabelsAndEvents(t *testing.T) {
	s := newTestSession()

	_, err := s.UpdateConditions(models.ConditionsUpdate{Sentiment: strPtr("euphoric")})
	assert.ErrorIs(t, err, ErrUnknownLabel)

	_, err = s.AddEvent(models.CompanyEvent{Type: "merger", Subtype: "x"})
	assert.ErrorIs(t, err, ErrUnknownEvent)
	_, err = s.AddEvent(models.CompanyEvent{Type: models.EventAnalyst, Subtype: "meh"})
	assert.ErrorIs(t, err, ErrUnknownEvent)

	c, err := s.UpdateConditions(models.ConditionsUpdate{Sentiment: strPtr("bullish"), CrudeOil: strPtr("up")})
	require.NoError(t, err)
	assert.Equal(t, "bullish", c.Sentiment)
	assert.Equal(t, "up", c.CrudeOil)
	assert.Equal(t, "neutral", c.Flows)
}

func TestSession_ResetKeepsConditions(t *testing.T) {
	s := newTestSession()
	first, err := s.Initialize(itMid, 0)
	require.NoError(t, err)
	_, err = s.UpdateConditions(models.ConditionsUpdate{Flows: strPtr("strong-inflows")})
	require.NoError(t, err)

	st, err := s.Reset(&models.Profile{Size: models.LargeCap, Sector: "energy"})
	require.NoError(t, err)
	assert.NotEqual(t, first.RunID, st.RunID)
	assert.Equal(t, "strong-inflows", st.State.MarketConditions.Flows)
	assert.Equal(t, 179.52, st.State.BasePrice)
	assert.Equal(t, "energy", st.State.CompanyProfile.Sector)

	_, err = s.Reset(&models.Profile{Size: "tiny", Sector: "it"})
	assert.ErrorIs(t, err, ErrUnknownSizeTier)
}

func TestSession_UpdateSector(t *testing.T) {
	s := newTestSession()
	_, err := s.UpdateSector("energy")
	assert.ErrorIs(t, err, ErrNotInitialized)

	_, err = s.Initialize(itMid, 0)
	require.NoError(t, err)
	before := s.History(0)

	st, err := s.UpdateSector("energy")
	require.NoError(t, err)
	assert.Equal(t, "energy", st.State.CompanyProfile.Sector)
	assert.Equal(t, before, st.State.HistoricalData)
}

func TestSession_History(t *testing.T) {
	s := newTestSession()
	_, err := s.Initialize(itMid, 0)
	require.NoError(t, err)

	all := s.History(0)
	require.Len(t, all, 30)
	last := s.History(3)
	assert.Equal(t, all[27:], last)
	assert.Len(t, s.History(100), 30)
}

func TestSession_Intraday(t *testing.T) {
	sink := &captureSink{}
	s := newTestSession(WithSink(sink))
	_, err := s.Initialize(itMid, 0)
	require.NoError(t, err)

	bars, err := s.Intraday(t.Context(), 10)
	require.NoError(t, err)
	require.Len(t, bars, 10)
	assert.Equal(t, bars[9].Close, s.Price().CurrentPrice)

	evs := sink.events()
	require.Len(t, evs, 10)
	for _, ev := range evs {
		assert.Equal(t, models.KindIntraday, ev.Kind)
	}
}

func TestSession_SinkErrorsDoNotFailCandles(t *testing.T) {
	sink := &captureSink{err: errors.New("down")}
	s := newTestSession(WithSink(sink))
	_, err := s.Initialize(itMid, 0)
	require.NoError(t, err)

	_, err = s.NextCandle(t.Context())
	assert.NoError(t, err)
}

func TestSession_SummaryAndStory(t *testing.T) {
	s := newTestSession()
	_, err := s.Initialize(models.Profile{Size: models.SmallCap, Sector: "healthcare"}, 0)
	require.NoError(t, err)

	sum, err := s.Summary()
	require.NoError(t, err)
	assert.Equal(t, 30, sum.Stats.Bars)
	assert.Equal(t, 124.36, sum.BasePrice)
	assert.InDelta(t, 1.2, sum.TotalImpact, 1e-9)

	sc, err := s.StoryContext()
	require.NoError(t, err)
	assert.Equal(t, "healthcare", sc.Sector)
	assert.Equal(t, "small-cap", sc.CompanySize)
	assert.Len(t, sc.Closes, 30)
}

func TestSession_AutoAdvance(t *testing.T) {
	s := newTestSession(WithAutoAdvanceInterval(5 * time.Millisecond))
	_, err := s.Initialize(itMid, 0)
	require.NoError(t, err)

	require.NoError(t, s.StartAuto(t.Context()))
	require.NoError(t, s.StartAuto(t.Context()))
	assert.True(t, s.AutoAdvancing())

	assert.Eventually(t, func() bool { return s.Price().CurrentDay >= 3 }, 2*time.Second, 5*time.Millisecond)

	s.StopAuto()
	assert.False(t, s.AutoAdvancing())
	day := s.Price().CurrentDay
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, day, s.Price().CurrentDay)
	require.NoError(t, s.Close())
}

func TestSession_AutoAdvanceStopsWithContext(t *testing.T) {
	s := newTestSession(WithAutoAdvanceInterval(5 * time.Millisecond))
	_, err := s.Initialize(itMid, 0)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.StartAuto(ctx))
	cancel()
	assert.Eventually(t, func() bool { return !s.AutoAdvancing() }, time.Second, 5*time.Millisecond)
}

func TestSession_Catalog(t *testing.T) {
	c := newTestSession().Catalog()
	assert.Contains(t, c["sectors"], "it")
	assert.Equal(t, []string{"analyst", "earnings", "insider", "news", "shock"}, c["event_types"])
}
