package models

import "time"

const (
	InvoiceStatusPending = "pending"
	InvoiceStatusSent    = "sent"
)

type Invoice struct {
	ID            uint   `gorm:"primaryKey;autoIncrement"`
	OrderID       string `gorm:"index"`
	CustomerEmail string `gorm:"index"`
	FileName      string
	FilePath      string `gorm:"size:500"`
	UploadDate    time.Time
	SentDate      *time.Time
	Status        string `gorm:"default:pending"`
}

func (Invoice) TableName() string {
	return "invoice_manager"
}
