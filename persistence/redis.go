package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wfunc/gameengine/models"
)

const keyPrefix = "gameengine"

func roomKey(roomID string) string {
	return fmt.Sprintf("%s:room:%s", keyPrefix, roomID)
}

// roomsIndexKey is the SET of every stored room id.
func roomsIndexKey() string {
	return fmt.Sprintf("%s:idx:rooms", keyPrefix)
}

func gamesKey(roomID string) string {
	return fmt.Sprintf("%s:games:%s", keyPrefix, roomID)
}

type RedisConfig struct {
	URL      string
	PoolSize int
	// RecordTTL expires room records and game lists. Zero keeps them.
	RecordTTL time.Duration
}

// Redis stores records as JSON values.
type Redis struct {
	client *redis.Client
	cfg    RedisConfig
}

func NewRedis(cfg RedisConfig) (*Redis, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &Redis{client: client, cfg: cfg}, nil
}

// NewRedisWithClient wraps an existing client.
func NewRedisWithClient(client *redis.Client, cfg RedisConfig) *Redis {
	return &Redis{client: client, cfg: cfg}
}

var _ Store = (*Redis)(nil)

func (r *Redis) SaveRoom(ctx context.Context, rec models.RoomRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, roomKey(rec.RoomID), data, r.cfg.RecordTTL)
	pipe.SAdd(ctx, roomsIndexKey(), rec.RoomID)
	_, err = pipe.Exec(ctx)
	return err
}

func (r *Redis) LoadRoom(ctx context.Context, roomID string) (models.RoomRecord, error) {
	data, err := r.client.Get(ctx, roomKey(roomID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return models.RoomRecord{}, ErrRecordNotFound
		}
		return models.RoomRecord{}, err
	}
	var rec models.RoomRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return models.RoomRecord{}, err
	}
	return rec, nil
}

func (r *Redis) DeleteRoom(ctx context.Context, roomID string) error {
	pipe := r.client.TxPipeline()
	pipe.Del(ctx, roomKey(roomID))
	pipe.SRem(ctx, roomsIndexKey(), roomID)
	_, err := pipe.Exec(ctx)
	return err
}

// ListRooms walks the room index. Ids whose record expired are dropped
// from the index on the way.
func (r *Redis) ListRooms(ctx context.Context, status string) ([]models.RoomRecord, error) {
	ids, err := r.client.SMembers(ctx, roomsIndexKey()).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(ids)

	var out []models.RoomRecord
	for _, id := range ids {
		rec, err := r.LoadRoom(ctx, id)
		if errors.Is(err, ErrRecordNotFound) {
			r.client.SRem(ctx, roomsIndexKey(), id)
			continue
		}
		if err != nil {
			return nil, err
		}
		if status == "" || rec.Status == status {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *Redis) SaveGameRecord(ctx context.Context, rec models.GameRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	key := gamesKey(rec.RoomID)
	pipe := r.client.TxPipeline()
	pipe.RPush(ctx, key, data)
	if r.cfg.RecordTTL > 0 {
		pipe.Expire(ctx, key, r.cfg.RecordTTL)
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (r *Redis) GameRecords(ctx context.Context, roomID string) ([]models.GameRecord, error) {
	items, err := r.client.LRange(ctx, gamesKey(roomID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]models.GameRecord, 0, len(items))
	for _, item := range items {
		var rec models.GameRecord
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
