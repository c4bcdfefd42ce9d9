package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sanosuguru/go-venue-reservation/internal/domain/schedule"
)

var (
	ErrCacheMiss = errors.New("キャッシュが見つかりません")
)

// AvailabilityCacheInterface は空き状況キャッシュのインターフェース
type AvailabilityCacheInterface interface {
	GetDay(ctx context.Context, venueID, day string) ([]schedule.TimeSlot, error)
	SetDay(ctx context.Context, venueID, day string, slots []schedule.TimeSlot, ttl time.Duration) error
	Invalidate(ctx context.Context, venueID, day string) error
}

// AvailabilityCache は店舗×日付ごとのスロット空き状況をキャッシュする
// 予約の作成・キャンセルで無効化される短命キャッシュ
type AvailabilityCache struct {
	client *redis.Client
}

// NewAvailabilityCache は新しいAvailabilityCacheインスタンスを作成する
func NewAvailabilityCache(client *redis.Client) *AvailabilityCache {
	return &AvailabilityCache{client: client}
}

// GetDay は指定日のスロット列をキャッシュから取得する
func (c *AvailabilityCache) GetDay(ctx context.Context, venueID, day string) ([]schedule.TimeSlot, error) {
	key := c.dayKey(venueID, day)
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("キャッシュ取得に失敗: %w", err)
	}
	var slots []schedule.TimeSlot
	if err := json.Unmarshal(data, &slots); err != nil {
		return nil, fmt.Errorf("キャッシュのデコードに失敗: %w", err)
	}
	return slots, nil
}

// SetDay は指定日のスロット列をキャッシュに保存する
func (c *AvailabilityCache) SetDay(ctx context.Context, venueID, day string, slots []schedule.TimeSlot, ttl time.Duration) error {
	data, err := json.Marshal(slots)
	if err != nil {
		return fmt.Errorf("キャッシュのエンコードに失敗: %w", err)
	}
	if err := c.client.Set(ctx, c.dayKey(venueID, day), data, ttl).Err(); err != nil {
		return fmt.Errorf("キャッシュ保存に失敗: %w", err)
	}
	return nil
}

// Invalidate は指定日のキャッシュを無効化する
func (c *AvailabilityCache) Invalidate(ctx context.Context, venueID, day string) error {
	if err := c.client.Del(ctx, c.dayKey(venueID, day)).Err(); err != nil {
		return fmt.Errorf("キャッシュ無効化に失敗: %w", err)
	}
	return nil
}

func (c *AvailabilityCache) dayKey(venueID, day string) string {
	return fmt.Sprintf("availability:%s:%s", venueID, day)
}

var _ AvailabilityCacheInterface = (*AvailabilityCache)(nil)
