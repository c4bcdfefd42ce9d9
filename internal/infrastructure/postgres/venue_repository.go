package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sanosuguru/go-venue-reservation/internal/domain/venue"
)

type venueRow struct {
	ID                 string    `db:"id"`
	Name               string    `db:"name"`
	Address            string    `db:"address"`
	Timezone           string    `db:"timezone"`
	GranularityMinutes int       `db:"granularity_minutes"`
	Hours              []byte    `db:"hours"`
	CreatedAt          time.Time `db:"created_at"`
	UpdatedAt          time.Time `db:"updated_at"`
}

// hours カラムは曜日番号（0=日曜）をキーにしたJSONBで永続化する
func encodeHours(hours venue.WeeklyHours) ([]byte, error) {
	m := make(map[string]venue.DayHours, len(hours))
	for d, h := range hours {
		m[strconv.Itoa(int(d))] = h
	}
	return json.Marshal(m)
}

func decodeHours(data []byte) (venue.WeeklyHours, error) {
	var m map[string]venue.DayHours
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	hours := make(venue.WeeklyHours, len(m))
	for k, h := range m {
		d, err := strconv.Atoi(k)
		if err != nil || d < 0 || d > 6 {
			return nil, fmt.Errorf("営業時間の曜日キーが不正です: %s", k)
		}
		hours[time.Weekday(d)] = h
	}
	return hours, nil
}

func (r *venueRow) toEntity() (*venue.Venue, error) {
	hours, err := decodeHours(r.Hours)
	if err != nil {
		return nil, fmt.Errorf("営業時間のデコードに失敗: %w", err)
	}
	return &venue.Venue{
		ID: r.ID, Name: r.Name, Address: r.Address,
		Timezone:    r.Timezone,
		Granularity: time.Duration(r.GranularityMinutes) * time.Minute,
		Hours:       hours,
		CreatedAt:   r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}, nil
}

const venueColumns = `id, name, address, timezone, granularity_minutes, hours, created_at, updated_at`

type VenueRepository struct{ db *sqlx.DB }

func NewVenueRepository(db *sqlx.DB) *VenueRepository {
	return &VenueRepository{db: db}
}

func (r *VenueRepository) Create(ctx context.Context, v *venue.Venue) error {
	hours, err := encodeHours(v.Hours)
	if err != nil {
		return fmt.Errorf("営業時間のエンコードに失敗: %w", err)
	}
	query := `INSERT INTO venues (name, address, timezone, granularity_minutes, hours, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`
	if err := r.db.QueryRowContext(ctx, query,
		v.Name, v.Address, v.Timezone, int(v.Granularity/time.Minute), hours, v.CreatedAt, v.UpdatedAt,
	).Scan(&v.ID); err != nil {
		return fmt.Errorf("店舗作成に失敗: %w", err)
	}
	return nil
}

func (r *VenueRepository) GetByID(ctx context.Context, id string) (*venue.Venue, error) {
	var row venueRow
	query := `SELECT ` + venueColumns + ` FROM venues WHERE id = $1`
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, venue.ErrVenueNotFound
		}
		return nil, fmt.Errorf("店舗取得に失敗: %w", err)
	}
	return row.toEntity()
}

func (r *VenueRepository) List(ctx context.Context, limit, offset int) ([]*venue.Venue, error) {
	var rows []venueRow
	query := `SELECT ` + venueColumns + ` FROM venues ORDER BY name ASC LIMIT $1 OFFSET $2`
	if err := r.db.SelectContext(ctx, &rows, query, limit, offset); err != nil {
		return nil, fmt.Errorf("店舗一覧取得に失敗: %w", err)
	}
	result := make([]*venue.Venue, len(rows))
	for i := range rows {
		v, err := rows[i].toEntity()
		if err != nil {
			return nil, err
		}
		result[i] = v
	}
	return result, nil
}

func (r *VenueRepository) Update(ctx context.Context, v *venue.Venue) error {
	hours, err := encodeHours(v.Hours)
	if err != nil {
		return fmt.Errorf("営業時間のエンコードに失敗: %w", err)
	}
	query := `UPDATE venues SET name = $1, address = $2, timezone = $3, granularity_minutes = $4, hours = $5, updated_at = $6
		WHERE id = $7`
	result, err := r.db.ExecContext(ctx, query,
		v.Name, v.Address, v.Timezone, int(v.Granularity/time.Minute), hours, time.Now(), v.ID)
	if err != nil {
		return fmt.Errorf("店舗更新に失敗: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return venue.ErrVenueNotFound
	}
	return nil
}

var _ venue.Repository = (*VenueRepository)(nil)
