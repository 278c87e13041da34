package mail

import (
	"fmt"

	"invoice-manager-backend/internal/models"

	"gopkg.in/gomail.v2"
)

// Mailer delivers a stored invoice to its customer. Failure is reported
// synchronously; there is no retry.
type Mailer interface {
	SendInvoice(order *models.Order, invoice *models.Invoice) error
}

type SMTPMailer struct {
	dialer   *gomail.Dialer
	from     string
	shopName string
	shopURL  string
}

func NewSMTPMailer(host string, port int, user, pass, from, shopName, shopURL string) *SMTPMailer {
	return &SMTPMailer{
		dialer:   gomail.NewDialer(host, port, user, pass),
		from:     from,
		shopName: shopName,
		shopURL:  shopURL,
	}
}

func (m *SMTPMailer) SendInvoice(order *models.Order, invoice *models.Invoice) error {
	body, err := renderInvoiceEmail(m.shopName, m.shopURL, order)
	if err != nil {
		return fmt.Errorf("could not render invoice email: %w", err)
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", msg.FormatAddress(m.from, m.shopName))
	msg.SetHeader("To", order.CustomerEmail)
	msg.SetHeader("Subject", fmt.Sprintf("Invoice for order #%s - %s", order.OrderNumber, m.shopName))
	msg.SetBody("text/html", body)
	msg.Attach(invoice.FilePath, gomail.Rename(invoice.FileName))

	return m.dialer.DialAndSend(msg)
}
