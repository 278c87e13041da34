package models

import "time"

// Order is a read-only snapshot of the shop order an invoice belongs to.
// Orders are created and managed by the shop itself, never by this service.
type Order struct {
	ID            string `gorm:"primaryKey"`
	OrderNumber   string
	CustomerName  string
	CustomerEmail string `gorm:"index"`
	Total         float64
	Status        string
	CreatedAt     time.Time
}
