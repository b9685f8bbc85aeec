package reservations

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/tenantbook/reservations/services/availability-service/internal/menu"
)

// Request is the booking form submission.
type Request struct {
	Name       string   `json:"name" validate:"required,max=100"`
	Phone      string   `json:"phone" validate:"required_without_all=Email LineUserID,max=20"`
	Email      string   `json:"email" validate:"omitempty,email"`
	LineUserID string   `json:"line_user_id" validate:"omitempty,max=64"`
	Visit      string   `json:"visit"`
	Course     string   `json:"course"`
	Menus      []string `json:"menus" validate:"required,min=1,dive,required"`
	Options    []string `json:"options" validate:"dive,required"`
	StartTime  string   `json:"start_time" validate:"required"`
	Note       string   `json:"note" validate:"max=1000"`
}

var validate = validator.New()

func (r Request) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return nil
}

func (r Request) Selection() menu.Selection {
	return menu.Selection{
		VisitCount: r.Visit,
		Course:     r.Course,
		Menus:      r.Menus,
		Options:    r.Options,
	}
}

func (r Request) Customer() Customer {
	return Customer{Name: r.Name, Phone: r.Phone, Email: r.Email, LineUserID: r.LineUserID, Note: r.Note}
}

type Customer struct {
	Name       string `json:"name"`
	Phone      string `json:"phone,omitempty"`
	Email      string `json:"email,omitempty"`
	LineUserID string `json:"line_user_id,omitempty"`
	Note       string `json:"note,omitempty"`
}

// Reservation is an accepted request, published for downstream processing.
type Reservation struct {
	ID           string         `json:"reservation_id"`
	StoreID      string         `json:"store_id"`
	StoreName    string         `json:"store_name"`
	Customer     Customer       `json:"customer"`
	Selection    menu.Selection `json:"selection"`
	StartTime    time.Time      `json:"start_time"`
	EndTime      time.Time      `json:"end_time"`
	TotalMinutes int            `json:"total_minutes"`
	RequestedAt  time.Time      `json:"requested_at"`
}
