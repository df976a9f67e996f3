package ledger

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"paperbot/internal/models"
)

// setupDB creates a fresh in-memory database for each test.
func setupDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	assert.NoError(t, err)

	err = db.AutoMigrate(&models.Trade{}, &models.TradeActivity{}, &models.JournalEntry{}, &models.PaperAccount{})
	assert.NoError(t, err)
	return db
}

func TestPaperLedger_GetOrCreateIsIdempotent(t *testing.T) {
	db := setupDB(t)
	paper := NewPaperLedger(db, zap.NewNop())

	first, err := paper.GetOrCreate(1, 1, 10000)
	assert.NoError(t, err)
	assert.Equal(t, 10000.0, first.StartingBalance)
	assert.Equal(t, 10000.0, first.CurrentBalance)

	// A second call with a different seed returns the existing row.
	second, err := paper.GetOrCreate(1, 1, 99999)
	assert.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 10000.0, second.StartingBalance)
}

func TestPaperLedger_AdjustRejectsOverdraw(t *testing.T) {
	db := setupDB(t)
	paper := NewPaperLedger(db, zap.NewNop())

	_, err := paper.GetOrCreate(1, 1, 100)
	assert.NoError(t, err)

	_, err = paper.Adjust(1, 1, -150, false)
	assert.ErrorIs(t, err, ErrInsufficientPaperBalance)

	// The failed adjustment must not have touched the balance.
	account, err := paper.GetOrCreate(1, 1, 0)
	assert.NoError(t, err)
	assert.Equal(t, 100.0, account.CurrentBalance)
}

func TestPaperLedger_AdjustAllowNegative(t *testing.T) {
	db := setupDB(t)
	paper := NewPaperLedger(db, zap.NewNop())

	_, err := paper.GetOrCreate(1, 1, 100)
	assert.NoError(t, err)

	// Exit-side credits may pass allowNegative even when the intermediate
	// arithmetic dips below zero.
	account, err := paper.Adjust(1, 1, -150, true)
	assert.NoError(t, err)
	assert.Equal(t, -50.0, account.CurrentBalance)
}

func TestPaperLedger_Conservation(t *testing.T) {
	db := setupDB(t)
	paper := NewPaperLedger(db, zap.NewNop())

	_, err := paper.GetOrCreate(1, 1, 1000)
	assert.NoError(t, err)

	deltas := []float64{-100, -250, 300, -50, 75}
	var sum float64
	for _, d := range deltas {
		_, err := paper.Adjust(1, 1, d, false)
		assert.NoError(t, err)
		sum += d
	}

	account, err := paper.GetOrCreate(1, 1, 0)
	assert.NoError(t, err)
	assert.InDelta(t, 1000+sum, account.CurrentBalance, 1e-9)
}

func TestPaperLedger_ConcurrentAdjustsSerialize(t *testing.T) {
	// A shared-cache in-memory database so every goroutine sees one store.
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	assert.NoError(t, err)
	sqlDB, err := db.DB()
	assert.NoError(t, err)
	// Serialize at the pool level; sqlite has a single writer anyway.
	sqlDB.SetMaxOpenConns(1)

	assert.NoError(t, db.AutoMigrate(&models.PaperAccount{}))
	paper := NewPaperLedger(db, zap.NewNop())

	_, err = paper.GetOrCreate(7, 7, 1000)
	assert.NoError(t, err)

	const workers = 8
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = paper.Adjust(7, 7, -10, false)
			_, _ = paper.Adjust(7, 7, 10, true)
		}()
	}
	wg.Wait()

	// Every debit is paired with a credit: no interleaving may lose one.
	account, err := paper.GetOrCreate(7, 7, 0)
	assert.NoError(t, err)
	assert.InDelta(t, 1000.0, account.CurrentBalance, 1e-9)
}

func TestPaperLedger_Reset(t *testing.T) {
	db := setupDB(t)
	paper := NewPaperLedger(db, zap.NewNop())

	_, err := paper.GetOrCreate(1, 1, 500)
	assert.NoError(t, err)
	_, err = paper.Adjust(1, 1, -200, false)
	assert.NoError(t, err)

	assert.NoError(t, paper.Reset(1, 1))

	account, err := paper.GetOrCreate(1, 1, 0)
	assert.NoError(t, err)
	assert.Equal(t, 500.0, account.CurrentBalance)
}
