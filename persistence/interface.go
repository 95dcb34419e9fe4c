// persistence/interface.go
package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/wfunc/gameengine/config"
	"github.com/wfunc/gameengine/models"
)

// Store keeps durable room records and finished game records.
type Store interface {
	SaveRoom(ctx context.Context, rec models.RoomRecord) error
	LoadRoom(ctx context.Context, roomID string) (models.RoomRecord, error)
	DeleteRoom(ctx context.Context, roomID string) error
	// ListRooms returns the records with the given status, or all of them
	// when status is empty.
	ListRooms(ctx context.Context, status string) ([]models.RoomRecord, error)
	SaveGameRecord(ctx context.Context, rec models.GameRecord) error
	GameRecords(ctx context.Context, roomID string) ([]models.GameRecord, error)
	Close() error
}

// 错误定义
var (
	ErrRecordNotFound = errors.New("record not found")
	ErrUnknownDriver  = errors.New("unknown storage driver")
)

// Open connects the store selected by cfg.Driver.
func Open(cfg config.StorageConfig) (Store, error) {
	pg := cfg.Postgres
	switch cfg.Driver {
	case "", "memory":
		return NewMemory(), nil
	case "redis":
		return NewRedis(RedisConfig{URL: cfg.Redis.URL, PoolSize: cfg.Redis.PoolSize, RecordTTL: cfg.Redis.RecordTTL})
	case "postgres":
		return NewPostgreSQL(pg.Host, pg.Port, pg.User, pg.Password, pg.DBName)
	case "gorm":
		return NewGormPostgreSQL(pg.Host, pg.Port, pg.User, pg.Password, pg.DBName)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
}
