package notify

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"log"
	"strings"

	"github.com/wneessen/go-mail"

	"storefront_back_end/internal/config"
	"storefront_back_end/internal/models"
)

// Mailer envoie une copie des factures au propriétaire par SMTP
type Mailer struct {
	host     string
	port     int
	username string
	password string
	from     string
	to       string
}

// NewMailer retourne nil si SMTP ou OWNER_EMAIL ne sont pas configurés
func NewMailer(cfg config.Settings) *Mailer {
	if cfg.SMTPHost == "" || cfg.OwnerEmail == "" {
		return nil
	}
	from := cfg.SMTPFrom
	if from == "" {
		from = cfg.SMTPUser
	}
	return &Mailer{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		username: cfg.SMTPUser,
		password: cfg.SMTPPassword,
		from:     from,
		to:       cfg.OwnerEmail,
	}
}

func (m *Mailer) SendInvoice(ctx context.Context, o *models.Order, pdf []byte) error {
	msg := mail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return err
	}
	if err := msg.To(m.to); err != nil {
		return err
	}
	msg.Subject(fmt.Sprintf("Facture commande #%d — %s", o.ID, o.CustomerName))
	msg.SetBodyString(mail.TypeTextHTML, invoiceHTML(o))
	msg.AttachReader(fmt.Sprintf("facture_%d.pdf", o.ID), bytes.NewReader(pdf))

	client, err := mail.NewClient(m.host,
		mail.WithPort(m.port),
		mail.WithSMTPAuth(mail.SMTPAuthLogin),
		mail.WithUsername(m.username),
		mail.WithPassword(m.password),
		mail.WithTLSPolicy(mail.TLSMandatory),
	)
	if err != nil {
		return err
	}

	log.Println("📧 Envoi de la facture à", m.to)
	return client.DialAndSendWithContext(ctx, msg)
}

func invoiceHTML(o *models.Order) string {
	var rows strings.Builder
	for _, it := range o.Items {
		fmt.Fprintf(&rows, `<tr><td>%s</td><td>%d</td><td>%s</td><td>%s</td></tr>`,
			html.EscapeString(it.ProductName), it.Quantity, money(it.UnitPrice), money(it.Subtotal()))
	}
	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="fr">
<body style="font-family: Arial, sans-serif;">
	<h2>Commande #%d approuvée</h2>
	<p>Client : %s</p>
	<table style="border-collapse: collapse;">
		<thead><tr><th>Produit</th><th>Quantité</th><th>Prix unitaire</th><th>Total</th></tr></thead>
		<tbody>%s</tbody>
	</table>
	<p><strong>Total : %s</strong></p>
	<p>La facture est jointe à ce message.</p>
</body>
</html>`, o.ID, html.EscapeString(o.CustomerName), rows.String(), money(o.Total))
}
