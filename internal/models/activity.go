package models

import "gorm.io/gorm"

// TradeActivity is an append-only audit record for one trade event.
type TradeActivity struct {
	gorm.Model
	TradeID uint   `json:"trade_id" gorm:"index;not null"`
	Kind    string `json:"kind" gorm:"not null"` // entered, exited, parked, moved, scanned
	Detail  string `json:"detail"`
	Actor   string `json:"actor"`
}

// JournalEntry is a free-text note attached to a trade, written by bots on
// entry/exit and by users reviewing closed positions.
type JournalEntry struct {
	gorm.Model
	TradeID   uint   `json:"trade_id" gorm:"index;not null"`
	Body      string `json:"body" gorm:"not null"`
	LessonTag string `json:"lesson_tag"`
	Author    string `json:"author"`
}
