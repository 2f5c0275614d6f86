// Package archive persists finished rounds. It is optional: sessions run
// fine without a database, history entries are simply not retained past the
// session's lifetime.
package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/Pamplemouss/eorguessr-backend/internal/engine"
)

// RoundRecord is the durable unit: one finished round, keyed by session
// code and round number. Append-only.
type RoundRecord struct {
	ID          uint   `gorm:"primaryKey"`
	SessionID   string `gorm:"size:16;uniqueIndex:idx_session_round"`
	RoundNumber int    `gorm:"uniqueIndex:idx_session_round"`
	MapID       string
	MapName     string
	AnswerX     int16
	AnswerY     int16
	Results     string `gorm:"type:jsonb"`
	CreatedAt   time.Time
}

type Archive struct {
	db     *gorm.DB
	logger *zap.Logger
}

func Open(dsn string, logger *zap.Logger) (*Archive, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open archive db: %w", err)
	}
	if err := db.AutoMigrate(&RoundRecord{}); err != nil {
		return nil, fmt.Errorf("migrate archive schema: %w", err)
	}
	return &Archive{db: db, logger: logger}, nil
}

// SaveRound appends one finished round. Satisfies session.RoundSink.
func (a *Archive) SaveRound(ctx context.Context, sessionID string, result engine.RoundResult) error {
	rec, err := newRoundRecord(sessionID, result)
	if err != nil {
		return err
	}
	if err := a.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return fmt.Errorf("save round %s/%d: %w", sessionID, result.RoundNumber, err)
	}
	return nil
}

// Recent returns the stored rounds of one session, oldest first.
func (a *Archive) Recent(ctx context.Context, sessionID string) ([]RoundRecord, error) {
	var recs []RoundRecord
	err := a.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("round_number asc").
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("load rounds for %s: %w", sessionID, err)
	}
	return recs, nil
}

func newRoundRecord(sessionID string, r engine.RoundResult) (RoundRecord, error) {
	results, err := json.Marshal(r.Results)
	if err != nil {
		return RoundRecord{}, fmt.Errorf("marshal round results: %w", err)
	}
	return RoundRecord{
		SessionID:   sessionID,
		RoundNumber: r.RoundNumber,
		MapID:       r.Scene.MapID,
		MapName:     r.Scene.MapName,
		AnswerX:     int16(r.Scene.Coordinate.X),
		AnswerY:     int16(r.Scene.Coordinate.Y),
		Results:     string(results),
	}, nil
}
