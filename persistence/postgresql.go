// persistence/postgresql.go
package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	// PostgreSQL 驱动
	_ "github.com/lib/pq"

	"github.com/wfunc/gameengine/models"
)

const queryTimeout = 5 * time.Second

// PostgreSQL stores records with plain SQL through lib/pq.
type PostgreSQL struct {
	db *sql.DB
}

// NewPostgreSQL 创建 PostgreSQL 数据库连接
func NewPostgreSQL(host string, port int, user, password, dbname string) (*PostgreSQL, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	// 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	// 设置连接池参数
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := initTables(ctx, db); err != nil {
		return nil, err
	}
	return &PostgreSQL{db: db}, nil
}

var _ Store = (*PostgreSQL)(nil)

// initTables 初始化数据库表结构
func initTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
        CREATE TABLE IF NOT EXISTS room_records (
            room_id VARCHAR(255) PRIMARY KEY,
            game_type VARCHAR(100) NOT NULL,
            status VARCHAR(50) NOT NULL,
            players JSONB NOT NULL,
            settings JSONB NOT NULL,
            stake BIGINT NOT NULL DEFAULT 0,
            created_at TIMESTAMPTZ NOT NULL,
            updated_at TIMESTAMPTZ NOT NULL
        )
    `)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
        CREATE TABLE IF NOT EXISTS game_results (
            id SERIAL PRIMARY KEY,
            room_id VARCHAR(255) NOT NULL,
            game_type VARCHAR(100) NOT NULL,
            winner VARCHAR(255) NOT NULL,
            reason VARCHAR(50) NOT NULL,
            players JSONB NOT NULL,
            moves INT NOT NULL DEFAULT 0,
            stake BIGINT NOT NULL DEFAULT 0,
            started_at TIMESTAMPTZ,
            finished_at TIMESTAMPTZ,
            created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
        )
    `)
	if err != nil {
		return err
	}

	// 创建索引以提高查询性能
	_, err = db.ExecContext(ctx, `
        CREATE INDEX IF NOT EXISTS idx_room_records_status ON room_records(status);
        CREATE INDEX IF NOT EXISTS idx_game_results_room_id ON game_results(room_id);
    `)
	return err
}

func (p *PostgreSQL) SaveRoom(ctx context.Context, rec models.RoomRecord) error {
	players, err := json.Marshal(rec.Players)
	if err != nil {
		return err
	}
	settings, err := json.Marshal(rec.Settings)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
        INSERT INTO room_records (room_id, game_type, status, players, settings, stake, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        ON CONFLICT (room_id)
        DO UPDATE SET status = $3, players = $4, settings = $5, stake = $6, updated_at = $8
    `
	_, err = p.db.ExecContext(ctx, query,
		rec.RoomID, rec.GameType, rec.Status, players, settings, rec.Stake, rec.CreatedAt, rec.UpdatedAt)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRoom(row rowScanner) (models.RoomRecord, error) {
	var (
		rec      models.RoomRecord
		players  []byte
		settings []byte
	)
	if err := row.Scan(&rec.RoomID, &rec.GameType, &rec.Status, &players, &settings,
		&rec.Stake, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return models.RoomRecord{}, err
	}
	if err := json.Unmarshal(players, &rec.Players); err != nil {
		return models.RoomRecord{}, err
	}
	if err := json.Unmarshal(settings, &rec.Settings); err != nil {
		return models.RoomRecord{}, err
	}
	return rec, nil
}

const roomColumns = `room_id, game_type, status, players, settings, stake, created_at, updated_at`

func (p *PostgreSQL) LoadRoom(ctx context.Context, roomID string) (models.RoomRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	row := p.db.QueryRowContext(ctx, `SELECT `+roomColumns+` FROM room_records WHERE room_id = $1`, roomID)
	rec, err := scanRoom(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.RoomRecord{}, ErrRecordNotFound
	}
	return rec, err
}

func (p *PostgreSQL) DeleteRoom(ctx context.Context, roomID string) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	_, err := p.db.ExecContext(ctx, `DELETE FROM room_records WHERE room_id = $1`, roomID)
	return err
}

func (p *PostgreSQL) ListRooms(ctx context.Context, status string) ([]models.RoomRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := p.db.QueryContext(ctx,
		`SELECT `+roomColumns+` FROM room_records WHERE $1::text = '' OR status = $1 ORDER BY room_id`, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.RoomRecord
	for rows.Next() {
		rec, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// SaveGameRecord 保存游戏记录
func (p *PostgreSQL) SaveGameRecord(ctx context.Context, rec models.GameRecord) error {
	players, err := json.Marshal(rec.Players)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
        INSERT INTO game_results (room_id, game_type, winner, reason, players, moves, stake, started_at, finished_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
    `
	_, err = p.db.ExecContext(ctx, query, rec.RoomID, rec.GameType, rec.Winner, rec.Reason,
		players, rec.Moves, rec.Stake, nullTime(rec.StartedAt), nullTime(rec.FinishedAt))
	return err
}

func (p *PostgreSQL) GameRecords(ctx context.Context, roomID string) ([]models.GameRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := p.db.QueryContext(ctx, `
        SELECT room_id, game_type, winner, reason, players, moves, stake, started_at, finished_at
        FROM game_results WHERE room_id = $1 ORDER BY id`, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.GameRecord
	for rows.Next() {
		var (
			rec               models.GameRecord
			players           []byte
			started, finished sql.NullTime
		)
		if err := rows.Scan(&rec.RoomID, &rec.GameType, &rec.Winner, &rec.Reason, &players,
			&rec.Moves, &rec.Stake, &started, &finished); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(players, &rec.Players); err != nil {
			return nil, err
		}
		rec.StartedAt = started.Time
		rec.FinishedAt = finished.Time
		out = append(out, rec)
	}
	return out, rows.Err()
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

// Close 关闭数据库连接
func (p *PostgreSQL) Close() error {
	return p.db.Close()
}
