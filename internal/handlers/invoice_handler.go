package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"

	"invoice-manager-backend/internal/middleware"
	"invoice-manager-backend/internal/repository"
	"invoice-manager-backend/internal/services/delivery"
	"invoice-manager-backend/internal/services/intake"
	"invoice-manager-backend/internal/services/maintenance"
	"invoice-manager-backend/internal/services/storage"

	"github.com/gin-gonic/gin"
)

// Action families for anti-forgery tokens. Download tokens are bound to a
// single invoice id on top of the family.
const (
	ActionUploadInvoice   = "upload_invoice"
	ActionSendInvoice     = "send_invoice"
	ActionGetOrderDetails = "get_order_details"
	ActionDeleteInvoice   = "delete_invoice"
	ActionCleanupInvoices = "cleanup_invoices"
	ActionDownloadPrefix  = "download_invoice_"
)

type InvoiceHandler struct {
	intake      *intake.Service
	delivery    *delivery.Service
	maintenance *maintenance.Service
	invoices    *repository.InvoiceRepository
	orders      *repository.OrderRepository
	csrf        *middleware.CSRF
	tempDir     string
}

func NewInvoiceHandler(
	intakeService *intake.Service,
	deliveryService *delivery.Service,
	maintenanceService *maintenance.Service,
	invoices *repository.InvoiceRepository,
	orders *repository.OrderRepository,
	csrf *middleware.CSRF,
	tempDir string,
) *InvoiceHandler {
	return &InvoiceHandler{
		intake:      intakeService,
		delivery:    deliveryService,
		maintenance: maintenanceService,
		invoices:    invoices,
		orders:      orders,
		csrf:        csrf,
		tempDir:     tempDir,
	}
}

// CSRFToken issues a token for one action family, bound to the caller.
func (h *InvoiceHandler) CSRFToken(c *gin.Context) {
	action := c.Param("action")
	if !validAction(action) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown action"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"action": action,
		"token":  h.csrf.Token(action, c.GetString(middleware.EmailKey)),
	})
}

func validAction(action string) bool {
	switch action {
	case ActionUploadInvoice, ActionSendInvoice, ActionGetOrderDetails,
		ActionDeleteInvoice, ActionCleanupInvoices:
		return true
	}
	return strings.HasPrefix(action, ActionDownloadPrefix)
}

// LimitBody caps the request body before any form parsing happens, so an
// oversized upload surfaces as a transport error instead of exhausting
// memory. Must run ahead of anything that reads the form.
func LimitBody(max int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, max)
		c.Next()
	}
}

// Upload handles the upload_invoice action: order id plus a PDF file.
func (h *InvoiceHandler) Upload(c *gin.Context) {
	orderID := c.PostForm("order_id")
	if orderID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "please select an order"})
		return
	}

	order, err := h.orders.GetByID(orderID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
		return
	}

	upload, cleanup := h.receiveFile(c)
	defer cleanup()

	result, err := h.intake.UploadInvoice(order, upload, c.GetString(middleware.EmailKey))
	if err != nil {
		var verr *intake.ValidationError
		switch {
		case errors.As(err, &verr):
			c.JSON(http.StatusBadRequest, gin.H{"error": verr.Message})
		case errors.Is(err, repository.ErrTableMissing):
			c.JSON(http.StatusInternalServerError, gin.H{"error": "the invoice table is missing, please reinstall the service"})
		case errors.Is(err, storage.ErrDirectoryCreate):
			c.JSON(http.StatusInternalServerError, gin.H{"error": "the upload directory could not be created"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not save the invoice"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":    "invoice uploaded successfully",
		"invoice_id": result.InvoiceID,
		"file_name":  result.FileName,
	})
}

// receiveFile copies the multipart file into the intake temp directory and
// translates transport failures into intake error codes. The returned
// cleanup removes the temp file unless intake already moved it away.
func (h *InvoiceHandler) receiveFile(c *gin.Context) (intake.Upload, func()) {
	noop := func() {}

	fileHeader, err := c.FormFile("invoice_file")
	if err != nil {
		code := intake.UploadErrCantWrite
		var maxErr *http.MaxBytesError
		if errors.Is(err, http.ErrMissingFile) {
			code = intake.UploadErrNoFile
		} else if errors.As(err, &maxErr) {
			code = intake.UploadErrServerSize
		}
		return intake.Upload{ErrorCode: code}, noop
	}

	// a form may declare its own, stricter ceiling
	if declared := c.PostForm("max_file_size"); declared != "" {
		if limit, convErr := strconv.ParseInt(declared, 10, 64); convErr == nil && fileHeader.Size > limit {
			return intake.Upload{FileName: fileHeader.Filename, ErrorCode: intake.UploadErrFormSize}, noop
		}
	}

	if err := os.MkdirAll(h.tempDir, 0o755); err != nil {
		return intake.Upload{FileName: fileHeader.Filename, ErrorCode: intake.UploadErrNoTempDir}, noop
	}
	tmp, err := os.CreateTemp(h.tempDir, "upload-*")
	if err != nil {
		return intake.Upload{FileName: fileHeader.Filename, ErrorCode: intake.UploadErrNoTempDir}, noop
	}
	cleanup := func() { os.Remove(tmp.Name()) }

	src, err := fileHeader.Open()
	if err != nil {
		tmp.Close()
		return intake.Upload{FileName: fileHeader.Filename, TempPath: tmp.Name(), ErrorCode: intake.UploadErrPartial}, cleanup
	}
	defer src.Close()

	_, copyErr := io.Copy(tmp, src)
	closeErr := tmp.Close()
	if copyErr != nil {
		code := intake.UploadErrPartial
		if !errors.Is(copyErr, io.ErrUnexpectedEOF) {
			code = intake.UploadErrCantWrite
		}
		return intake.Upload{FileName: fileHeader.Filename, TempPath: tmp.Name(), ErrorCode: code}, cleanup
	}
	if closeErr != nil {
		return intake.Upload{FileName: fileHeader.Filename, TempPath: tmp.Name(), ErrorCode: intake.UploadErrCantWrite}, cleanup
	}

	return intake.Upload{
		FileName:     fileHeader.Filename,
		TempPath:     tmp.Name(),
		Size:         fileHeader.Size,
		DeclaredType: fileHeader.Header.Get("Content-Type"),
		ErrorCode:    intake.UploadOK,
	}, cleanup
}

// Send handles the send_invoice action.
func (h *InvoiceHandler) Send(c *gin.Context) {
	invoiceID, err := parseInvoiceID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid invoice ID"})
		return
	}

	result := h.delivery.Send(invoiceID, c.GetString(middleware.EmailKey))
	switch result.Outcome {
	case delivery.OutcomeSent:
		c.JSON(http.StatusOK, gin.H{"message": result.Message})
	case delivery.OutcomeStoreFailed:
		// the email went out; report the inconsistent status rather than hide it
		c.JSON(http.StatusOK, gin.H{"message": result.Message, "warning": true})
	case delivery.OutcomeAlreadySent:
		c.JSON(http.StatusConflict, gin.H{"error": result.Message})
	case delivery.OutcomeTransportFailed:
		c.JSON(http.StatusBadGateway, gin.H{"error": result.Message})
	default:
		c.JSON(http.StatusNotFound, gin.H{"error": result.Message})
	}
}

// OrderDetails returns the customer/order summary shown before an upload.
func (h *InvoiceHandler) OrderDetails(c *gin.Context) {
	order, err := h.orders.GetByID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order_number":   order.OrderNumber,
		"customer_name":  order.CustomerName,
		"customer_email": order.CustomerEmail,
		"total":          fmt.Sprintf("%.2f", order.Total),
		"status":         order.Status,
		"date":           order.CreatedAt.Format("02/01/2006"),
	})
}

// ListRecent returns the newest invoices for the admin listing.
func (h *InvoiceHandler) ListRecent(c *gin.Context) {
	invoices, err := h.invoices.ListRecent(50)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load invoices"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"invoices": invoices})
}

// ListMine returns the caller's invoices, newest upload first, each with a
// download token bound to that invoice.
func (h *InvoiceHandler) ListMine(c *gin.Context) {
	email := c.GetString(middleware.EmailKey)
	invoices, err := h.invoices.ListForCustomer(email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load invoices"})
		return
	}

	items := make([]gin.H, 0, len(invoices))
	for _, inv := range invoices {
		items = append(items, gin.H{
			"id":             inv.ID,
			"order_id":       inv.OrderID,
			"file_name":      inv.FileName,
			"upload_date":    inv.UploadDate,
			"sent_date":      inv.SentDate,
			"status":         inv.Status,
			"download_token": h.csrf.Token(downloadAction(inv.ID), email),
		})
	}
	c.JSON(http.StatusOK, gin.H{"invoices": items})
}

// Download streams an invoice back to its owner. Every failure is a
// terminal denial with no bytes written.
func (h *InvoiceHandler) Download(c *gin.Context) {
	invoiceID, err := parseInvoiceID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid invoice ID"})
		return
	}

	email := c.GetString(middleware.EmailKey)
	if !h.csrf.Verify(downloadAction(invoiceID), email, c.Query("csrf_token")) {
		c.JSON(http.StatusForbidden, gin.H{"error": "invalid request token"})
		return
	}

	invoice, err := h.invoices.GetByID(invoiceID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "invoice not found"})
		return
	}

	if invoice.CustomerEmail != email {
		c.JSON(http.StatusForbidden, gin.H{"error": "you do not have permission to download this invoice"})
		return
	}

	info, err := os.Stat(invoice.FilePath)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "file not found on the server"})
		return
	}

	c.Header("Content-Type", "application/pdf")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", invoice.FileName))
	c.Header("Content-Length", strconv.FormatInt(info.Size(), 10))
	c.File(invoice.FilePath)
}

// Delete handles explicit invoice deletion: file first, then row.
func (h *InvoiceHandler) Delete(c *gin.Context) {
	invoiceID, err := parseInvoiceID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid invoice ID"})
		return
	}

	if err := h.maintenance.DeleteInvoice(invoiceID, c.GetString(middleware.EmailKey)); err != nil {
		if errors.Is(err, repository.ErrInvoiceNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "invoice not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not delete the invoice"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "invoice deleted"})
}

// Cleanup runs the age-based sweep and reports how many invoices went away.
func (h *InvoiceHandler) Cleanup(c *gin.Context) {
	var payload struct {
		Days int `json:"days"`
	}
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	removed, err := h.maintenance.Cleanup(payload.Days, c.GetString(middleware.EmailKey))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "cleanup failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "cleanup completed", "invoices_removed": removed})
}

func downloadAction(invoiceID uint) string {
	return fmt.Sprintf("%s%d", ActionDownloadPrefix, invoiceID)
}

func parseInvoiceID(raw string) (uint, error) {
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}
