package archive

import (
	"context"
	"errors"
	"fmt"

	"github.com/DoyleJ11/tictactoe-server/internal/session"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// Gorm stores finished games in PostgreSQL.
type Gorm struct {
	db  *gorm.DB
	log *zap.Logger
}

// OpenPostgres connects with dsn and migrates the finished_games table.
func OpenPostgres(dsn string, log *zap.Logger) (*Gorm, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return NewGorm(db, log)
}

func NewGorm(db *gorm.DB, log *zap.Logger) (*Gorm, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, fmt.Errorf("migrate finished_games: %w", err)
	}
	return &Gorm{db: db, log: log}, nil
}

// Save upserts the final state of a game.
func (g *Gorm) Save(ctx context.Context, snap session.Snapshot) error {
	rec, err := FromSnapshot(snap)
	if err != nil {
		return err
	}
	err = g.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&rec).Error
	if err != nil {
		return fmt.Errorf("save game %s: %w", rec.GameID, err)
	}
	g.log.Debug("archived game", zap.String("game_id", rec.GameID), zap.String("status", rec.Status))
	return nil
}

func (g *Gorm) Load(ctx context.Context, gameID string) (session.Snapshot, error) {
	var rec Record
	err := g.db.WithContext(ctx).First(&rec, "game_id = ?", gameID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return session.Snapshot{}, ErrNotFound
	}
	if err != nil {
		return session.Snapshot{}, fmt.Errorf("load game %s: %w", gameID, err)
	}
	return rec.Snapshot()
}

func (g *Gorm) Close() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
