package maintenance

import (
	"log"
	"os"
	"time"

	"invoice-manager-backend/internal/models"
	"invoice-manager-backend/internal/repository"
)

// DefaultRetentionDays is applied when no threshold is given.
const DefaultRetentionDays = 365

type Service struct {
	invoices *repository.InvoiceRepository
	audit    *repository.AuditLogRepository
}

func NewService(invoices *repository.InvoiceRepository, audit *repository.AuditLogRepository) *Service {
	return &Service{invoices: invoices, audit: audit}
}

// DeleteInvoice removes the backing file first, then the row.
func (s *Service) DeleteInvoice(invoiceID uint, performedBy string) error {
	invoice, err := s.invoices.GetByID(invoiceID)
	if err != nil {
		return err
	}

	if err := os.Remove(invoice.FilePath); err != nil && !os.IsNotExist(err) {
		return err
	}
	if err := s.invoices.Delete(invoiceID); err != nil {
		return err
	}

	if err := s.audit.Record(invoiceID, models.AuditActionDeleted, performedBy, map[string]interface{}{
		"order_id":  invoice.OrderID,
		"file_name": invoice.FileName,
	}); err != nil {
		log.Printf("audit record failed for invoice %d: %v", invoiceID, err)
	}
	return nil
}

// Cleanup removes every invoice uploaded strictly more than days ago,
// deleting file and row for each, and returns how many were removed.
func (s *Service) Cleanup(days int, performedBy string) (int, error) {
	if days <= 0 {
		days = DefaultRetentionDays
	}
	cutoff := time.Now().AddDate(0, 0, -days)

	old, err := s.invoices.FindOlderThan(cutoff)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, invoice := range old {
		if err := s.DeleteInvoice(invoice.ID, performedBy); err != nil {
			log.Printf("cleanup: could not delete invoice %d: %v", invoice.ID, err)
			continue
		}
		removed++
	}
	return removed, nil
}
