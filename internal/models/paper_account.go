package models

import "gorm.io/gorm"

// PaperAccount is the virtual cash balance for one (board, user) pair.
// CurrentBalance changes only through the paper ledger's Adjust operation.
type PaperAccount struct {
	gorm.Model
	BoardID         uint    `json:"board_id" gorm:"uniqueIndex:idx_board_user;not null"`
	UserID          uint    `json:"user_id" gorm:"uniqueIndex:idx_board_user;not null"`
	StartingBalance float64 `json:"starting_balance" gorm:"not null"`
	CurrentBalance  float64 `json:"current_balance" gorm:"not null"`
}
