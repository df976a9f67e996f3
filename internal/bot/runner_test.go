package bot

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"paperbot/internal/models"
)

func TestRunAll_OnlyRunningBotsExecute(t *testing.T) {
	f := setupCycle(t, nil)
	running := seedBot(t, f.db, &models.Bot{Name: "a", Style: "momentum", Substyle: "steady"})
	seedBot(t, f.db, &models.Bot{Name: "b", Style: "momentum", Substyle: "steady", RunStatus: models.BotStopped})
	seedBot(t, f.db, &models.Bot{Name: "c", Style: "momentum", Substyle: "steady", RunStatus: models.BotPaused})

	runner := NewRunner(f.cycle, f.bots, time.Minute, 2, zap.NewNop())
	results := runner.RunAll(context.Background())

	assert.Len(t, results, 1)
	assert.Equal(t, running.ID, results[0].BotID)
	assert.Empty(t, results[0].Errors)

	// Stopped and paused bots never accrue cycles.
	for _, name := range []string{"b", "c"} {
		var b models.Bot
		assert.NoError(t, f.db.Where("name = ?", name).First(&b).Error)
		assert.EqualValues(t, 0, b.TotalCycles)
		assert.Nil(t, b.LastRunAt)
	}
}

func TestRunAll_NoRunningBots(t *testing.T) {
	f := setupCycle(t, nil)
	seedBot(t, f.db, &models.Bot{Style: "momentum", Substyle: "steady", RunStatus: models.BotStopped})

	runner := NewRunner(f.cycle, f.bots, time.Minute, 4, zap.NewNop())
	assert.Empty(t, runner.RunAll(context.Background()))
}

func TestRunAll_EveryBotGetsAResult(t *testing.T) {
	f := setupCycle(t, nil)
	ok := seedBot(t, f.db, &models.Bot{Name: "ok", Style: "momentum", Substyle: "steady"})
	bad := seedBot(t, f.db, &models.Bot{Name: "bad", Style: "nope", Substyle: "nope"})

	runner := NewRunner(f.cycle, f.bots, time.Minute, 1, zap.NewNop())
	results := runner.RunAll(context.Background())
	assert.Len(t, results, 2)

	byBot := make(map[uint]Result, len(results))
	for _, res := range results {
		byBot[res.BotID] = res
	}
	assert.Empty(t, byBot[ok.ID].Errors)
	assert.NotEmpty(t, byBot[bad.ID].Errors, "a failing bot still reports a result")
}
