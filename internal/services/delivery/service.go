package delivery

import (
	"log"
	"os"
	"time"

	"invoice-manager-backend/internal/mail"
	"invoice-manager-backend/internal/models"
	"invoice-manager-backend/internal/repository"
)

// Outcome tags the result of a send attempt so callers branch on kind, not
// on message content.
type Outcome int

const (
	OutcomeSent Outcome = iota
	OutcomeAlreadySent
	OutcomeInvoiceNotFound
	OutcomeOrderNotFound
	OutcomeFileMissing
	OutcomeTransportFailed
	OutcomeStoreFailed
)

type SendResult struct {
	Outcome Outcome
	Message string
}

func result(outcome Outcome, message string) SendResult {
	return SendResult{Outcome: outcome, Message: message}
}

// Service drives the pending -> sent transition. sent is terminal.
type Service struct {
	invoices *repository.InvoiceRepository
	orders   *repository.OrderRepository
	audit    *repository.AuditLogRepository
	mailer   mail.Mailer
}

func NewService(
	invoices *repository.InvoiceRepository,
	orders *repository.OrderRepository,
	audit *repository.AuditLogRepository,
	mailer mail.Mailer,
) *Service {
	return &Service{
		invoices: invoices,
		orders:   orders,
		audit:    audit,
		mailer:   mailer,
	}
}

// Send checks every precondition before the mail transport is invoked; any
// failure aborts with status untouched.
func (s *Service) Send(invoiceID uint, performedBy string) SendResult {
	invoice, err := s.invoices.GetByID(invoiceID)
	if err != nil {
		return result(OutcomeInvoiceNotFound, "invoice not found")
	}

	if invoice.Status == models.InvoiceStatusSent {
		return result(OutcomeAlreadySent, "invoice has already been sent")
	}

	order, err := s.orders.GetByID(invoice.OrderID)
	if err != nil {
		return result(OutcomeOrderNotFound, "order not found")
	}

	if _, err := os.Stat(invoice.FilePath); err != nil {
		return result(OutcomeFileMissing, "invoice file not found on disk")
	}

	if err := s.mailer.SendInvoice(order, invoice); err != nil {
		log.Printf("invoice %d: mail transport failed: %v", invoiceID, err)
		s.recordAudit(invoiceID, models.AuditActionSendFailed, performedBy, map[string]interface{}{
			"error": err.Error(),
		})
		return result(OutcomeTransportFailed, "could not send the email")
	}

	sentAt := time.Now()
	if err := s.invoices.UpdateStatus(invoiceID, models.InvoiceStatusSent, &sentAt); err != nil {
		// The email is already out. Status stays pending, so a later send
		// can duplicate the email; recorded, not hidden.
		log.Printf("invoice %d: sent but status update failed: %v", invoiceID, err)
		s.recordAudit(invoiceID, models.AuditActionConsistencyWarning, performedBy, map[string]interface{}{
			"error":   err.Error(),
			"sent_at": sentAt,
		})
		return result(OutcomeStoreFailed, "invoice was sent, but its status could not be updated")
	}

	s.recordAudit(invoiceID, models.AuditActionSent, performedBy, map[string]interface{}{
		"sent_at":        sentAt,
		"customer_email": invoice.CustomerEmail,
	})
	return result(OutcomeSent, "invoice sent successfully")
}

func (s *Service) recordAudit(invoiceID uint, action, performedBy string, details map[string]interface{}) {
	if err := s.audit.Record(invoiceID, action, performedBy, details); err != nil {
		log.Printf("audit record failed for invoice %d: %v", invoiceID, err)
	}
}
