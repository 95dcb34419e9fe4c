// persistence/gorm_postgresql.go
package persistence

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/wfunc/gameengine/models"
)

// GormPostgreSQL 使用GORM的PostgreSQL实现
type GormPostgreSQL struct {
	db *gorm.DB
}

// NewGormPostgreSQL 创建GORM PostgreSQL数据库连接
func NewGormPostgreSQL(host string, port int, user, password, dbname string) (*GormPostgreSQL, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	// 配置GORM日志
	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold: time.Second,
			LogLevel:      logger.Silent,
			Colorful:      false,
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	// 设置连接池
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := AutoMigrate(db); err != nil {
		return nil, err
	}
	return &GormPostgreSQL{db: db}, nil
}

// AutoMigrate 自动迁移表结构
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.GormAccount{},
		&models.GormGameRecord{},
		&models.GormRoom{},
	)
}

var _ Store = (*GormPostgreSQL)(nil)

// DB exposes the connection so the ledger can share it.
func (p *GormPostgreSQL) DB() *gorm.DB {
	return p.db
}

func (p *GormPostgreSQL) SaveRoom(ctx context.Context, rec models.RoomRecord) error {
	room := models.GormRoom{
		RoomID:   rec.RoomID,
		GameType: rec.GameType,
		Status:   rec.Status,
		Players:  rec.Players,
		Settings: rec.Settings,
		Stake:    rec.Stake,
	}
	room.CreatedAt = rec.CreatedAt
	room.UpdatedAt = rec.UpdatedAt

	return p.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "room_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "players", "settings", "stake", "updated_at"}),
	}).Create(&room).Error
}

func (p *GormPostgreSQL) LoadRoom(ctx context.Context, roomID string) (models.RoomRecord, error) {
	var room models.GormRoom
	if err := p.db.WithContext(ctx).Where("room_id = ?", roomID).First(&room).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.RoomRecord{}, ErrRecordNotFound
		}
		return models.RoomRecord{}, err
	}
	return room.Record(), nil
}

func (p *GormPostgreSQL) DeleteRoom(ctx context.Context, roomID string) error {
	return p.db.WithContext(ctx).Unscoped().Where("room_id = ?", roomID).Delete(&models.GormRoom{}).Error
}

func (p *GormPostgreSQL) ListRooms(ctx context.Context, status string) ([]models.RoomRecord, error) {
	q := p.db.WithContext(ctx).Order("room_id")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var rooms []models.GormRoom
	if err := q.Find(&rooms).Error; err != nil {
		return nil, err
	}
	out := make([]models.RoomRecord, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, r.Record())
	}
	return out, nil
}

// SaveGameRecord 保存游戏记录
func (p *GormPostgreSQL) SaveGameRecord(ctx context.Context, rec models.GameRecord) error {
	row := models.FromGameRecord(rec)
	return p.db.WithContext(ctx).Create(&row).Error
}

func (p *GormPostgreSQL) GameRecords(ctx context.Context, roomID string) ([]models.GameRecord, error) {
	var rows []models.GormGameRecord
	if err := p.db.WithContext(ctx).Where("room_id = ?", roomID).Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]models.GameRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, models.GameRecord{
			RoomID:     r.RoomID,
			GameType:   r.GameType,
			Winner:     r.Winner,
			Reason:     r.Reason,
			Players:    r.Players,
			Moves:      r.Moves,
			Stake:      r.Stake,
			FinishedAt: r.CreatedAt,
			StartedAt:  r.CreatedAt.Add(-time.Duration(r.Duration) * time.Second),
		})
	}
	return out, nil
}

// Close 关闭数据库连接
func (p *GormPostgreSQL) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Transaction runs fn in a database transaction.
func (p *GormPostgreSQL) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return p.db.WithContext(ctx).Transaction(fn)
}
