package intake

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"invoice-manager-backend/internal/models"
	"invoice-manager-backend/internal/repository"
	"invoice-manager-backend/internal/services/storage"
)

// ValidationError marks a user-recoverable rejection: resubmitting a
// corrected file can succeed. Environment and record-store failures pass
// through unwrapped so callers can tell them apart.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

type UploadResult struct {
	InvoiceID uint
	FileName  string
	FilePath  string
}

// Service runs the intake sequence: validate, address, persist, record.
// Upload and record creation are one unit; if either half fails the other
// is rolled back.
type Service struct {
	validator *Validator
	store     *storage.Service
	invoices  *repository.InvoiceRepository
	audit     *repository.AuditLogRepository
}

func NewService(
	validator *Validator,
	store *storage.Service,
	invoices *repository.InvoiceRepository,
	audit *repository.AuditLogRepository,
) *Service {
	return &Service{
		validator: validator,
		store:     store,
		invoices:  invoices,
		audit:     audit,
	}
}

func (s *Service) UploadInvoice(order *models.Order, u Upload, performedBy string) (*UploadResult, error) {
	// Validation runs before any directory is touched, so an oversized or
	// wrong-typed file never creates storage state.
	if v := s.validator.Validate(u); !v.Valid {
		return nil, &ValidationError{Message: v.Message}
	}

	if order.CustomerEmail == "" {
		return nil, &ValidationError{Message: "no customer email found for the order"}
	}

	destPath, err := s.store.Allocate(order.CustomerEmail, u.FileName)
	if err != nil {
		return nil, err
	}

	if err := moveFile(u.TempPath, destPath); err != nil {
		return nil, fmt.Errorf("could not store the file: %w", err)
	}

	// The move must have produced a readable, non-empty file
	info, err := os.Stat(destPath)
	if err != nil || info.Size() == 0 {
		os.Remove(destPath)
		return nil, errors.New("file was not stored correctly")
	}

	fileName := info.Name()
	invoiceID, err := s.invoices.Create(order.ID, order.CustomerEmail, fileName, destPath)
	if err != nil {
		// no orphan files: the row failed, so the file goes too
		os.Remove(destPath)
		return nil, err
	}

	if err := s.audit.Record(invoiceID, models.AuditActionUploaded, performedBy, map[string]interface{}{
		"order_id":  order.ID,
		"file_name": fileName,
		"size":      u.Size,
	}); err != nil {
		log.Printf("audit record failed for invoice %d: %v", invoiceID, err)
	}

	return &UploadResult{
		InvoiceID: invoiceID,
		FileName:  fileName,
		FilePath:  destPath,
	}, nil
}

// moveFile renames when possible and falls back to copy-and-remove when
// the temp dir sits on another filesystem.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return os.Chmod(dst, 0o644)
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(dst)
		return err
	}
	return os.Remove(src)
}
