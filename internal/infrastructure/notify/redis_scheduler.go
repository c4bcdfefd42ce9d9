package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/sanosuguru/go-venue-reservation/internal/domain/notification"
)

const (
	reminderQueueKey     = "reminders:queue"
	reminderPayloadKey   = "reminders:payload:%s"
	// 発火予定を大幅に過ぎても残っている孤児ペイロードの保険
	reminderPayloadGrace = 7 * 24 * time.Hour
)

// popDueScript は発火時刻を迎えたリマインダーをアトミックに取り出す
// ZSETからの除去と取り出しを1スクリプトで行い、複数ディスパッチャが
// 同じリマインダーを二重送信しないことを保証する
var popDueScript = redis.NewScript(`
	local due = redis.call("ZRANGEBYSCORE", KEYS[1], "-inf", ARGV[1], "LIMIT", 0, ARGV[2])
	local result = {}
	for _, handle in ipairs(due) do
		redis.call("ZREM", KEYS[1], handle)
		local payloadKey = "reminders:payload:" .. handle
		local payload = redis.call("GET", payloadKey)
		if payload then
			redis.call("DEL", payloadKey)
			table.insert(result, handle)
			table.insert(result, payload)
		end
	end
	return result
`)

// DueReminder は発火時刻を迎えたリマインダー
type DueReminder struct {
	Handle  string
	Payload notification.Payload
}

// RedisScheduler はRedisのソート済みセットを予定表としたリマインダースケジューラ
// スコア=発火時刻のUnix秒、メンバー=ハンドルで管理する
type RedisScheduler struct {
	client *redis.Client
}

var _ notification.Scheduler = (*RedisScheduler)(nil)

func NewRedisScheduler(client *redis.Client) *RedisScheduler {
	return &RedisScheduler{client: client}
}

// Schedule はリマインダーを登録し、取消用のハンドルを返す
func (s *RedisScheduler) Schedule(ctx context.Context, fireAt time.Time, payload notification.Payload) (string, error) {
	handle := uuid.NewString()

	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("リマインダーのシリアライズに失敗: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, fmt.Sprintf(reminderPayloadKey, handle), data, reminderPayloadGrace)
	pipe.ZAdd(ctx, reminderQueueKey, redis.Z{
		Score:  float64(fireAt.Unix()),
		Member: handle,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("%w: %v", notification.ErrScheduleFailed, err)
	}
	return handle, nil
}

// Cancel は未発火のリマインダーを取り消す
// 既に発火済み・取消済みの場合は ErrReminderNotFound を返す
func (s *RedisScheduler) Cancel(ctx context.Context, handle string) error {
	removed, err := s.client.ZRem(ctx, reminderQueueKey, handle).Result()
	if err != nil {
		return fmt.Errorf("リマインダー取消に失敗: %w", err)
	}
	if removed == 0 {
		return notification.ErrReminderNotFound
	}
	if err := s.client.Del(ctx, fmt.Sprintf(reminderPayloadKey, handle)).Err(); err != nil {
		return fmt.Errorf("リマインダーペイロード削除に失敗: %w", err)
	}
	return nil
}

// PopDue は asOf までに発火すべきリマインダーを最大 limit 件取り出す
// 取り出されたリマインダーは予定表から除去され、再取得されない
func (s *RedisScheduler) PopDue(ctx context.Context, asOf time.Time, limit int) ([]DueReminder, error) {
	raw, err := popDueScript.Run(ctx, s.client,
		[]string{reminderQueueKey},
		strconv.FormatInt(asOf.Unix(), 10), strconv.Itoa(limit)).Slice()
	if err != nil {
		return nil, fmt.Errorf("発火対象リマインダーの取得に失敗: %w", err)
	}

	due := make([]DueReminder, 0, len(raw)/2)
	for i := 0; i+1 < len(raw); i += 2 {
		handle, _ := raw[i].(string)
		encoded, _ := raw[i+1].(string)
		var payload notification.Payload
		if err := json.Unmarshal([]byte(encoded), &payload); err != nil {
			return nil, fmt.Errorf("リマインダーのデシリアライズに失敗: %w", err)
		}
		due = append(due, DueReminder{Handle: handle, Payload: payload})
	}
	return due, nil
}
