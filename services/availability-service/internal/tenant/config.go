// Package tenant holds per-store booking configuration and the stores that
// persist it.
package tenant

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/tenantbook/reservations/services/availability-service/internal/menu"
)

var (
	ErrNotFound      = errors.New("store config not found")
	ErrInvalidConfig = errors.New("invalid store config")
)

// DayHours is one weekday's opening hours.
type DayHours struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Open    string `json:"open,omitempty" yaml:"open,omitempty" validate:"omitempty,clock"`
	Close   string `json:"close,omitempty" yaml:"close,omitempty" validate:"omitempty,clock"`
}

// Rules are the booking rules of a store. Only LastAcceptableEnd is enforced
// by slot generation; the remaining fields are kept for the admin console.
type Rules struct {
	LastAcceptableEnd string              `json:"lastAcceptableEnd" yaml:"lastAcceptableEnd" validate:"required,clock"`
	BusinessHours     map[string]DayHours `json:"businessHours,omitempty" yaml:"businessHours,omitempty" validate:"omitempty,dive,keys,oneof=mon tue wed thu fri sat sun,endkeys"`
	MaxParallel       int                 `json:"maxParallel,omitempty" yaml:"maxParallel,omitempty" validate:"gte=0"`
	MaxFutureDays     int                 `json:"maxFutureDays,omitempty" yaml:"maxFutureDays,omitempty" validate:"gte=0"`
	CancelLimitHours  int                 `json:"cancelLimitHours,omitempty" yaml:"cancelLimitHours,omitempty" validate:"gte=0"`
}

// StoreConfig is one store's booking setup. AvailabilityURL, when set,
// overrides the service-wide availability endpoint.
type StoreConfig struct {
	ID              string      `json:"id" yaml:"id" validate:"required,storeid"`
	Name            string      `json:"name" yaml:"name" validate:"required"`
	Timezone        string      `json:"timezone,omitempty" yaml:"timezone,omitempty" validate:"omitempty,timezone"`
	AvailabilityURL string      `json:"availabilityUrl,omitempty" yaml:"availabilityUrl,omitempty" validate:"omitempty,url"`
	Menu            menu.Config `json:"menu" yaml:"menu"`
	Rules           Rules       `json:"rules" yaml:"rules"`
}

// Location resolves Timezone, falling back to def when unset.
func (c StoreConfig) Location(def *time.Location) (*time.Location, error) {
	if c.Timezone == "" {
		return def, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: timezone %q", ErrInvalidConfig, c.Timezone)
	}
	return loc, nil
}

// Store loads and saves store configurations.
type Store interface {
	Get(ctx context.Context, storeID string) (StoreConfig, error)
	Put(ctx context.Context, cfg StoreConfig) error
	List(ctx context.Context) ([]string, error)
}

var (
	clockPattern   = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)
	storeIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,63}$`)
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("clock", func(fl validator.FieldLevel) bool {
		return clockPattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("storeid", func(fl validator.FieldLevel) bool {
		return ValidStoreID(fl.Field().String())
	})
	return v
}

// ValidStoreID reports whether id is safe to use as a key and file name.
func ValidStoreID(id string) bool {
	return storeIDPattern.MatchString(id)
}

// Validate checks cfg and wraps any problem in ErrInvalidConfig.
func Validate(cfg StoreConfig) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}
