package mail

import (
	"bytes"
	"html/template"
	"time"

	"invoice-manager-backend/internal/models"
)

var invoiceEmailTmpl = template.Must(template.New("invoice").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"><title>Order Invoice</title></head>
<body style="font-family: Arial, sans-serif; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
  <div style="background-color: #f8f9fa; padding: 20px; text-align: center; border-radius: 5px;">
    <h1>{{.ShopName}}</h1>
    <p>Order Invoice</p>
  </div>
  <div style="padding: 20px; border: 1px solid #ddd; border-radius: 5px;">
    <p>Dear {{.CustomerName}},</p>
    <p>Please find attached the invoice for your order.</p>
    <div style="background-color: #f8f9fa; padding: 15px; border-radius: 5px;">
      <h3>Order Details</h3>
      <p><strong>Order Number:</strong> #{{.OrderNumber}}</p>
      <p><strong>Date:</strong> {{.OrderDate}}</p>
      <p><strong>Total:</strong> {{printf "%.2f" .Total}}</p>
    </div>
    <p>The invoice is attached to this email as a PDF file.</p>
    <p>If you have any questions, do not hesitate to contact us.</p>
    <p>Kind regards,<br>{{.ShopName}}</p>
  </div>
  <div style="text-align: center; margin-top: 30px; color: #666; font-size: 12px;">
    <p>&copy; {{.Year}} {{.ShopName}}. All rights reserved.</p>
    {{if .ShopURL}}<p><a href="{{.ShopURL}}">{{.ShopURL}}</a></p>{{end}}
  </div>
</body>
</html>`))

func renderInvoiceEmail(shopName, shopURL string, order *models.Order) (string, error) {
	var buf bytes.Buffer
	err := invoiceEmailTmpl.Execute(&buf, map[string]interface{}{
		"ShopName":     shopName,
		"ShopURL":      shopURL,
		"CustomerName": order.CustomerName,
		"OrderNumber":  order.OrderNumber,
		"OrderDate":    order.CreatedAt.Format("02/01/2006"),
		"Total":        order.Total,
		"Year":         time.Now().Year(),
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
