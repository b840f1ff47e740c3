// internal/app/bootstrap/appconfig.go
package bootstrap

import (
	"fmt"
	"time"

	"github.com/barbearia/calendario/internal/app/features/agenda"
	"github.com/barbearia/calendario/internal/app/system/middleware"
)

// AppConfig holds everything the API needs at runtime beyond waffle's
// core config. It is read once in LoadConfig, checked in ValidateConfig
// and then passed by value to every hook; nothing reads the environment
// after that.
type AppConfig struct {
	Port int    // TCP port to listen on (PORT)
	Env  string // deployment label echoed by /status (NODE_ENV)

	// Auth. JWTSecret is sensitive and must never be logged.
	JWTSecret string
	JWTExpiry time.Duration

	// MongoDB
	MongoURI            string
	MongoDatabase       string
	MongoConnectTimeout time.Duration
	DBFailFast          bool // abort startup when the database cannot be reached

	// HTTP pipeline
	CORS           middleware.CORSPolicy
	CORSOrigins    string // raw CORS_ORIGINS value
	RequestTimeout time.Duration
	BodyLimit      int64

	// Logging. LogLevel mirrors the core config's level.
	LogLevel              string
	LogStartupDiagnostics bool

	// Token revocation backend; blank keeps revocations in memory.
	RedisURL string

	MetricsEnabled bool

	// Agenda
	BusinessOpen  string // HH:MM
	BusinessClose string // HH:MM
	SlotMinutes   int
	Timezone      string // IANA name
}

// SlotFinder builds the availability calculator from the business hours.
func (c AppConfig) SlotFinder() (*agenda.SlotFinder, error) {
	open, err := agenda.ParseClock(c.BusinessOpen)
	if err != nil {
		return nil, fmt.Errorf("business_open: %w", err)
	}
	closeAt, err := agenda.ParseClock(c.BusinessClose)
	if err != nil {
		return nil, fmt.Errorf("business_close: %w", err)
	}
	if open >= closeAt {
		return nil, fmt.Errorf("business_open %s must be before business_close %s", c.BusinessOpen, c.BusinessClose)
	}
	if c.SlotMinutes < 5 || c.SlotMinutes > 480 {
		return nil, fmt.Errorf("slot_minutes must be between 5 and 480, got %d", c.SlotMinutes)
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	return agenda.NewSlotFinder(open, closeAt, time.Duration(c.SlotMinutes)*time.Minute, loc), nil
}
