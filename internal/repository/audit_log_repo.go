package repository

import (
	"encoding/json"
	"time"

	"invoice-manager-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type AuditLogRepository struct {
	db *gorm.DB
}

func NewAuditLogRepository(db *gorm.DB) *AuditLogRepository {
	return &AuditLogRepository{db: db}
}

// Record writes one audit row. details may be nil.
func (r *AuditLogRepository) Record(invoiceID uint, action, performedBy string, details map[string]interface{}) error {
	entry := models.InvoiceAuditLog{
		ID:          uuid.New(),
		InvoiceID:   invoiceID,
		Action:      action,
		PerformedBy: performedBy,
		CreatedAt:   time.Now(),
	}
	if details != nil {
		raw, err := json.Marshal(details)
		if err != nil {
			return err
		}
		entry.Details = datatypes.JSON(raw)
	}
	return r.db.Create(&entry).Error
}

// ListForInvoice returns an invoice's audit trail, oldest first.
func (r *AuditLogRepository) ListForInvoice(invoiceID uint) ([]models.InvoiceAuditLog, error) {
	var entries []models.InvoiceAuditLog
	err := r.db.
		Where("invoice_id = ?", invoiceID).
		Order("created_at ASC").
		Find(&entries).Error
	return entries, err
}
