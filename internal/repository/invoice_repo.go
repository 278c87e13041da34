package repository

import (
	"errors"
	"time"

	"invoice-manager-backend/internal/models"

	"gorm.io/gorm"
)

// ErrTableMissing signals an installation problem, not an empty table.
var ErrTableMissing = errors.New("invoice table does not exist")

var ErrInvoiceNotFound = errors.New("invoice not found")

type InvoiceRepository struct {
	db *gorm.DB
}

func NewInvoiceRepository(db *gorm.DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

// Expose DB if needed
func (r *InvoiceRepository) DB() *gorm.DB {
	return r.db
}

// Create inserts a new pending invoice row and returns its id. The caller
// owns the file at filePath and must remove it if Create fails.
func (r *InvoiceRepository) Create(orderID, customerEmail, fileName, filePath string) (uint, error) {
	if !r.db.Migrator().HasTable(&models.Invoice{}) {
		return 0, ErrTableMissing
	}

	invoice := models.Invoice{
		OrderID:       orderID,
		CustomerEmail: customerEmail,
		FileName:      fileName,
		FilePath:      filePath,
		UploadDate:    time.Now(),
		Status:        models.InvoiceStatusPending,
	}

	if err := r.db.Create(&invoice).Error; err != nil {
		return 0, err
	}
	return invoice.ID, nil
}

// GetByID fetch a single invoice by ID
func (r *InvoiceRepository) GetByID(id uint) (*models.Invoice, error) {
	var invoice models.Invoice
	err := r.db.First(&invoice, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvoiceNotFound
	}
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

// ListForCustomer returns a customer's invoices, newest upload first.
func (r *InvoiceRepository) ListForCustomer(email string) ([]models.Invoice, error) {
	var invoices []models.Invoice
	err := r.db.
		Where("customer_email = ?", email).
		Order("upload_date DESC, id DESC").
		Find(&invoices).Error
	return invoices, err
}

// ListRecent is used by the admin listing
func (r *InvoiceRepository) ListRecent(limit int) ([]models.Invoice, error) {
	var invoices []models.Invoice
	err := r.db.
		Order("upload_date DESC, id DESC").
		Limit(limit).
		Find(&invoices).Error
	return invoices, err
}

// UpdateStatus is used only by the delivery flow.
func (r *InvoiceRepository) UpdateStatus(id uint, status string, sentAt *time.Time) error {
	result := r.db.Model(&models.Invoice{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":    status,
			"sent_date": sentAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrInvoiceNotFound
	}
	return nil
}

// Delete removes the row only; the caller removes the backing file first.
func (r *InvoiceRepository) Delete(id uint) error {
	return r.db.Delete(&models.Invoice{}, "id = ?", id).Error
}

// FindOlderThan returns invoices uploaded strictly before cutoff.
func (r *InvoiceRepository) FindOlderThan(cutoff time.Time) ([]models.Invoice, error) {
	var invoices []models.Invoice
	err := r.db.Where("upload_date < ?", cutoff).Find(&invoices).Error
	return invoices, err
}
