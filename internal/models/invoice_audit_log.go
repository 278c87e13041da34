package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	AuditActionUploaded           = "uploaded"
	AuditActionSent               = "sent"
	AuditActionSendFailed         = "send_failed"
	AuditActionDeleted            = "deleted"
	AuditActionConsistencyWarning = "consistency_warning"
)

type InvoiceAuditLog struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	InvoiceID   uint      `gorm:"index"`
	Action      string
	PerformedBy string
	Details     datatypes.JSON
	CreatedAt   time.Time
}
