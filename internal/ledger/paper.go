package ledger

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"paperbot/internal/models"
)

// PaperLedger manages the virtual cash balance per (board, user).
type PaperLedger struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewPaperLedger creates a paper account ledger.
func NewPaperLedger(db *gorm.DB, logger *zap.Logger) *PaperLedger {
	return &PaperLedger{db: db, logger: logger.Named("paper")}
}

// GetOrCreate returns the account for (board, user), seeding both starting
// and current balance when the row does not exist yet. Idempotent.
func (l *PaperLedger) GetOrCreate(boardID, userID uint, startingBalance float64) (*models.PaperAccount, error) {
	var account models.PaperAccount
	err := l.db.Where("board_id = ? AND user_id = ?", boardID, userID).First(&account).Error
	if err == nil {
		return &account, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to load paper account: %w", err)
	}

	account = models.PaperAccount{
		BoardID:         boardID,
		UserID:          userID,
		StartingBalance: startingBalance,
		CurrentBalance:  startingBalance,
	}
	// FirstOrCreate absorbs the race where two cycles seed the same account.
	if err := l.db.Where("board_id = ? AND user_id = ?", boardID, userID).
		FirstOrCreate(&account, account).Error; err != nil {
		return nil, fmt.Errorf("failed to create paper account: %w", err)
	}
	return &account, nil
}

// Adjust atomically applies a signed delta to the account balance in its own
// transaction. Lifecycle writes that must commit together with a trade-row
// update call AdjustTx with the ambient transaction instead.
func (l *PaperLedger) Adjust(boardID, userID uint, delta float64, allowNegative bool) (*models.PaperAccount, error) {
	var account *models.PaperAccount
	err := l.db.Transaction(func(tx *gorm.DB) error {
		var err error
		account, err = l.AdjustTx(tx, boardID, userID, delta, allowNegative)
		return err
	})
	if err != nil {
		return nil, err
	}

	l.logger.Debug("paper balance adjusted",
		zap.Uint("board_id", boardID), zap.Uint("user_id", userID),
		zap.Float64("delta", delta), zap.Float64("balance", account.CurrentBalance))
	return account, nil
}

// AdjustTx applies a signed delta inside the caller's transaction. The row
// is locked for the duration of the transaction so concurrent cycles on the
// same account serialize, and the balance write commits or rolls back with
// whatever trade-row write the transaction carries alongside it. A resulting
// negative balance is rejected with ErrInsufficientPaperBalance unless
// allowNegative is set (exit-side credits return previously reserved capital
// and always succeed).
func (l *PaperLedger) AdjustTx(tx *gorm.DB, boardID, userID uint, delta float64, allowNegative bool) (*models.PaperAccount, error) {
	var account models.PaperAccount
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("board_id = ? AND user_id = ?", boardID, userID).
		First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		account = models.PaperAccount{BoardID: boardID, UserID: userID}
		if err := tx.Create(&account).Error; err != nil {
			return nil, fmt.Errorf("failed to create paper account: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed to lock paper account: %w", err)
	}

	newBalance := account.CurrentBalance + delta
	if newBalance < 0 && !allowNegative {
		return nil, fmt.Errorf("%w: balance %.2f, delta %.2f",
			ErrInsufficientPaperBalance, account.CurrentBalance, delta)
	}

	if err := tx.Model(&account).Update("current_balance", newBalance).Error; err != nil {
		return nil, fmt.Errorf("failed to write paper balance: %w", err)
	}
	account.CurrentBalance = newBalance
	return &account, nil
}

// Reset restores the current balance to the starting balance.
func (l *PaperLedger) Reset(boardID, userID uint) error {
	result := l.db.Model(&models.PaperAccount{}).
		Where("board_id = ? AND user_id = ?", boardID, userID).
		Update("current_balance", gorm.Expr("starting_balance"))
	if result.Error != nil {
		return fmt.Errorf("failed to reset paper account: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
