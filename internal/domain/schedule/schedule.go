package schedule

import (
	"time"

	"github.com/sanosuguru/go-venue-reservation/internal/domain/reservation"
	"github.com/sanosuguru/go-venue-reservation/internal/domain/venue"
)

// TimeSlot は予約可能な時間枠を表す（導出値、永続化しない）
// 常に現在の予約集合から再計算する
type TimeSlot struct {
	StartAt   time.Time `json:"start_at"`
	EndAt     time.Time `json:"end_at"`
	Available bool      `json:"available"`
}

// Overlaps は2つの半開区間 [aStart, aEnd) と [bStart, bEnd) が重なるかを返す
// 端点が接するだけの場合は重ならない
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// Slots は店舗の営業時間とスロット粒度から、指定日のスロット列を生成する
// 店舗のタイムゾーンにおける暦日で計算する。副作用なし
//
// スロットは [open, close) を粒度刻みで隙間なく覆う。閉店までの残り時間が
// 粒度に満たない末尾の半端なスロットは落とす。定休日は空列を返す
func Slots(v *venue.Venue, day time.Time) ([]TimeSlot, error) {
	loc, err := v.Location()
	if err != nil {
		return nil, err
	}
	local := day.In(loc)
	hours, ok := v.HoursOn(local.Weekday())
	if !ok {
		return []TimeSlot{}, nil
	}

	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	open := midnight.Add(time.Duration(hours.Open) * time.Minute)
	closeAt := midnight.Add(time.Duration(hours.Close) * time.Minute)

	slots := make([]TimeSlot, 0, closeAt.Sub(open)/v.Granularity)
	for start := open; !start.Add(v.Granularity).After(closeAt); start = start.Add(v.Granularity) {
		slots = append(slots, TimeSlot{
			StartAt:   start,
			EndAt:     start.Add(v.Granularity),
			Available: true,
		})
	}
	return slots, nil
}

// MarkAvailability は既存予約からスロットの空き状況を計算する
// アクティブ予約（pending/confirmed）と区間が重なるスロットは埋まり扱い
//
// 判定は常に時点（instant）ベースの区間重なりで行う。暦日文字列や
// 時台の比較では、時間をまたぐ予約や日付境界の予約で競合を見落とす
func MarkAvailability(slots []TimeSlot, reservations []*reservation.Reservation) []TimeSlot {
	marked := make([]TimeSlot, len(slots))
	for i, slot := range slots {
		marked[i] = slot
		marked[i].Available = true
		for _, r := range reservations {
			if !r.IsActive() {
				continue
			}
			if Overlaps(slot.StartAt, slot.EndAt, r.StartAt, r.EndAt) {
				marked[i].Available = false
				break
			}
		}
	}
	return marked
}

// ValidateStart は予約開始時刻を検証する
// 順に (a) 予約可能期間と営業時間 → ErrOutOfWindow
//      (b) スロット境界への整列   → ErrMisaligned
// 競合チェック（ErrSlotTaken）は呼び出し元がストアに対して行う
func ValidateStart(v *venue.Venue, startAt, now time.Time, maxAdvance time.Duration) error {
	if !startAt.After(now) {
		return reservation.ErrOutOfWindow
	}
	if maxAdvance > 0 && startAt.After(now.Add(maxAdvance)) {
		return reservation.ErrOutOfWindow
	}

	loc, err := v.Location()
	if err != nil {
		return err
	}
	local := startAt.In(loc)
	hours, ok := v.HoursOn(local.Weekday())
	if !ok {
		return reservation.ErrOutOfWindow
	}

	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	open := midnight.Add(time.Duration(hours.Open) * time.Minute)
	closeAt := midnight.Add(time.Duration(hours.Close) * time.Minute)

	// 最終スロットの開始時刻は close - granularity
	latest := closeAt.Add(-v.Granularity)
	if local.Before(open) || local.After(latest) {
		return reservation.ErrOutOfWindow
	}
	if local.Sub(open)%v.Granularity != 0 {
		return reservation.ErrMisaligned
	}
	return nil
}
