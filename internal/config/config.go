package config

import (
	"os"
	"strconv"
	"time"
)

// Config はアプリケーション設定を表す
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Booking  BookingConfig
	SendGrid SendGridConfig
}

// ServerConfig はサーバー設定
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DatabaseConfig はデータベース設定
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig はRedis設定
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// BookingConfig は予約エンジンの設定
type BookingConfig struct {
	// MaxAdvance は何日先まで予約できるか（現在からの上限）
	MaxAdvance time.Duration
	// ReminderLead はリマインダーを開始時刻の何分前に発火するか
	ReminderLead time.Duration
	// SweepInterval は終了済み予約を completed に遷移させるスイープの間隔
	SweepInterval time.Duration
	// DispatchInterval は発火時刻を迎えたリマインダーの配送間隔
	DispatchInterval time.Duration
	// EventBuffer はライフサイクルイベントチャネルのバッファ長
	EventBuffer int
	// ExternalTimeout は外部コラボレータ呼び出しの上限時間
	ExternalTimeout time.Duration
}

// SendGridConfig はリマインダー配送用のSendGrid設定
type SendGridConfig struct {
	APIKey    string
	FromEmail string
	FromName  string
}

// Load は環境変数から設定を読み込む
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			ReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "venue_reservation"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		Booking: BookingConfig{
			MaxAdvance:       getDurationEnv("BOOKING_MAX_ADVANCE", 30*24*time.Hour),
			ReminderLead:     getDurationEnv("BOOKING_REMINDER_LEAD", time.Hour),
			SweepInterval:    getDurationEnv("BOOKING_SWEEP_INTERVAL", 5*time.Minute),
			DispatchInterval: getDurationEnv("BOOKING_DISPATCH_INTERVAL", 30*time.Second),
			EventBuffer:      getIntEnv("BOOKING_EVENT_BUFFER", 64),
			ExternalTimeout:  getDurationEnv("BOOKING_EXTERNAL_TIMEOUT", 5*time.Second),
		},
		SendGrid: SendGridConfig{
			APIKey:    getEnv("SENDGRID_API_KEY", ""),
			FromEmail: getEnv("SENDGRID_FROM_EMAIL", ""),
			FromName:  getEnv("SENDGRID_FROM_NAME", "Venue Reservation"),
		},
	}
}

// DSN はPostgreSQL接続文字列を返す
func (c *DatabaseConfig) DSN() string {
	return "host=" + c.Host +
		" port=" + c.Port +
		" user=" + c.User +
		" password=" + c.Password +
		" dbname=" + c.DBName +
		" sslmode=" + c.SSLMode
}

// Addr はRedis接続アドレスを返す
func (c *RedisConfig) Addr() string {
	return c.Host + ":" + c.Port
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
