package core

import (
	"errors"
	"strings"
	"time"
)

const (
	// Record store collection names.
	CollectionsName  = "collections"
	DepositsName     = "deposits"
	PendingItemsName = "pendingItems"
)

type (
	// Collection is one cash handover from a cleaner.
	Collection struct {
		ID          string    `json:"id"`
		CleanerName string    `json:"cleanerName"`
		Site        string    `json:"site"`
		Date        time.Time `json:"date"`
		Amount      Money     `json:"amount"`
		Notes       string    `json:"notes,omitempty"`
	}

	// PendingItem is an imported, not-yet-confirmed collection.
	PendingItem struct {
		ID          string    `json:"id"`
		CleanerName string    `json:"cleanerName"`
		Site        string    `json:"site"`
		CarPlate    string    `json:"carPlate"`
		Amount      Money     `json:"amount"`
		Date        time.Time `json:"date"`
	}

	// Deposit is cash/card handed to the bank on behalf of a cleaner.
	// TotalAmount is always CashAmount + CardAmount.
	Deposit struct {
		ID          string    `json:"id"`
		CleanerName string    `json:"cleanerName"`
		Site        string    `json:"site"`
		Date        time.Time `json:"date"`
		CashAmount  Money     `json:"cashAmount"`
		CardAmount  Money     `json:"cardAmount"`
		TotalAmount Money     `json:"totalAmount"`
		DepositSlip string    `json:"depositSlip,omitempty"`
		AuthCode    string    `json:"authCode,omitempty"`
	}
)

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrEmptyCleaner    = errors.New("empty cleaner name")
	ErrEmptySite       = errors.New("empty site")
	ErrEmptyCarPlate   = errors.New("empty car plate")
	ErrZeroDate        = errors.New("date cannot be zero")
	ErrTotalMismatch   = errors.New("total amount must equal cash plus card")
	ErrNoDepositAmount = errors.New("at least one of cash or card amount must be positive")
)

func (c Collection) Validate() error {
	if strings.TrimSpace(c.CleanerName) == "" {
		return ErrEmptyCleaner
	}
	if strings.TrimSpace(c.Site) == "" {
		return ErrEmptySite
	}
	if c.Date.IsZero() {
		return ErrZeroDate
	}
	if c.Amount.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (p PendingItem) Validate() error {
	if strings.TrimSpace(p.CleanerName) == "" {
		return ErrEmptyCleaner
	}
	if strings.TrimSpace(p.Site) == "" {
		return ErrEmptySite
	}
	if strings.TrimSpace(p.CarPlate) == "" {
		return ErrEmptyCarPlate
	}
	if p.Date.IsZero() {
		return ErrZeroDate
	}
	if p.Amount.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Normalize recomputes TotalAmount from the two parts.
func (d *Deposit) Normalize() {
	d.TotalAmount = Money{Cents: d.CashAmount.Cents + d.CardAmount.Cents}
}

func (d Deposit) Validate() error {
	if strings.TrimSpace(d.CleanerName) == "" {
		return ErrEmptyCleaner
	}
	if strings.TrimSpace(d.Site) == "" {
		return ErrEmptySite
	}
	if d.Date.IsZero() {
		return ErrZeroDate
	}
	if d.CashAmount.Cents < 0 || d.CardAmount.Cents < 0 {
		return ErrInvalidAmount
	}
	if d.TotalAmount.Cents != d.CashAmount.Cents+d.CardAmount.Cents {
		return ErrTotalMismatch
	}
	if d.CashAmount.Cents <= 0 && d.CardAmount.Cents <= 0 {
		return ErrNoDepositAmount
	}
	return nil
}
