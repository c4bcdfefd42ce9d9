package venue

import "time"

// DefaultGranularity はスロット粒度のデフォルト値（60分）
const DefaultGranularity = 60 * time.Minute

// DayHours は1日の営業時間を表す（深夜0時からの分数）
type DayHours struct {
	Open  int `json:"open"`
	Close int `json:"close"`
}

// WeeklyHours は曜日ごとの営業時間を表す
// エントリがない曜日は定休日
type WeeklyHours map[time.Weekday]DayHours

// Venue は店舗エンティティを表す
type Venue struct {
	ID          string
	Name        string
	Address     string
	Timezone    string
	Granularity time.Duration
	Hours       WeeklyHours
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewVenue は新しい店舗を作成する
func NewVenue(name, address, timezone string, granularity time.Duration, hours WeeklyHours) *Venue {
	if granularity <= 0 {
		granularity = DefaultGranularity
	}
	now := time.Now()
	return &Venue{
		Name:        name,
		Address:     address,
		Timezone:    timezone,
		Granularity: granularity,
		Hours:       hours,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Location は店舗のタイムゾーンを返す
func (v *Venue) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(v.Timezone)
	if err != nil {
		return nil, ErrInvalidTimezone
	}
	return loc, nil
}

// HoursOn は指定曜日の営業時間を返す（定休日の場合はfalse）
func (v *Venue) HoursOn(weekday time.Weekday) (DayHours, bool) {
	h, ok := v.Hours[weekday]
	return h, ok
}

// IsClosedOn は指定曜日が定休日かを返す
func (v *Venue) IsClosedOn(weekday time.Weekday) bool {
	_, ok := v.Hours[weekday]
	return !ok
}

// Validate は店舗の検証を行う
func (v *Venue) Validate() error {
	if v.Name == "" {
		return ErrVenueNameRequired
	}
	if v.Timezone == "" {
		return ErrInvalidTimezone
	}
	if _, err := time.LoadLocation(v.Timezone); err != nil {
		return ErrInvalidTimezone
	}
	if v.Granularity <= 0 || v.Granularity%time.Minute != 0 {
		return ErrInvalidGranularity
	}
	if len(v.Hours) == 0 {
		return ErrHoursRequired
	}
	for _, h := range v.Hours {
		if h.Open < 0 || h.Close > 24*60 || h.Open >= h.Close {
			return ErrInvalidHours
		}
	}
	return nil
}
