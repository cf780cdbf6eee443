package invoice

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"

	"storefront_back_end/internal/models"
)

type Line struct {
	Name      string
	Quantity  int
	UnitPrice decimal.Decimal
}

func (l Line) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Snapshot est l'état figé d'une commande approuvée, seule entrée du rendu
type Snapshot struct {
	OrderID       int64
	CustomerName  string
	PaymentMethod string
	Items         []Line
	Total         decimal.Decimal
	ApprovedAt    time.Time
}

func SnapshotFromOrder(o *models.Order) (Snapshot, error) {
	if o.ApprovedAt == nil {
		return Snapshot{}, fmt.Errorf("%w: commande #%d non approuvée", models.ErrRender, o.ID)
	}
	s := Snapshot{
		OrderID:       o.ID,
		CustomerName:  o.CustomerName,
		PaymentMethod: o.PaymentMethod,
		Total:         o.Total,
		ApprovedAt:    *o.ApprovedAt,
	}
	for _, it := range o.Items {
		s.Items = append(s.Items, Line{Name: it.ProductName, Quantity: it.Quantity, UnitPrice: it.UnitPrice})
	}
	return s, nil
}

type Document struct {
	Filename string
	Data     []byte
	Pages    int
}

// Renderer produit des factures PDF A4 ; même snapshot, mêmes octets
type Renderer struct {
	Bank BankDetails
}

func NewRenderer(bank BankDetails) *Renderer {
	return &Renderer{Bank: bank}
}

const (
	pageMargin   = 10.0
	bottomMargin = 25.0
	rowHeight    = 8.0
	qrSize       = 40.0
)

var columns = []struct {
	title string
	width float64
	align string
}{
	{"Produit", 95, "L"},
	{"Qté", 20, "C"},
	{"Prix unitaire", 37.5, "R"},
	{"Sous-total", 37.5, "R"},
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2) + " €"
}

// Render formate la facture ; toute erreur enveloppe models.ErrRender
func (r *Renderer) Render(s Snapshot) (*Document, error) {
	if len(s.Items) == 0 {
		return nil, fmt.Errorf("%w: commande #%d sans ligne", models.ErrRender, s.OrderID)
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCreationDate(s.ApprovedAt)
	pdf.SetModificationDate(s.ApprovedAt)
	pdf.SetCatalogSort(true)
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, bottomMargin)
	pdf.AliasNbPages("")

	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(fmt.Sprintf("Facture %d", s.OrderID), true)
	pdf.SetAuthor(r.Bank.Name, true)

	pdf.SetHeaderFunc(func() {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(0, 6, tr(fmt.Sprintf("%s — Facture n° %d", r.Bank.Name, s.OrderID)), "B", 1, "R", false, 0, "")
		pdf.Ln(4)
	})
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 20)
	pdf.CellFormat(0, 12, "FACTURE", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 6, tr(fmt.Sprintf("Commande n° %d", s.OrderID)), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, tr("Date d'approbation : "+s.ApprovedAt.UTC().Format("02/01/2006 15:04")+" UTC"), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, tr("Client : "+s.CustomerName), "", 1, "L", false, 0, "")
	if s.PaymentMethod != "" {
		pdf.CellFormat(0, 6, tr("Paiement : "+s.PaymentMethod), "", 1, "L", false, 0, "")
	}
	pdf.Ln(6)

	tableHeader := func() {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.SetFillColor(230, 230, 230)
		for _, col := range columns {
			pdf.CellFormat(col.width, rowHeight, tr(col.title), "1", 0, col.align, true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Helvetica", "", 10)
	}
	tableHeader()

	_, pageHeight := pdf.GetPageSize()
	for _, it := range s.Items {
		if pdf.GetY()+rowHeight > pageHeight-bottomMargin {
			pdf.AddPage()
			tableHeader()
		}
		cells := []string{
			fit(pdf, tr, it.Name, columns[0].width-2),
			fmt.Sprintf("%d", it.Quantity),
			tr(money(it.UnitPrice)),
			tr(money(it.Subtotal())),
		}
		for i, col := range columns {
			pdf.CellFormat(col.width, rowHeight, cells[i], "1", 0, col.align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	pdf.SetFont("Helvetica", "B", 11)
	labelWidth := columns[0].width + columns[1].width + columns[2].width
	pdf.CellFormat(labelWidth, rowHeight, "TOTAL", "1", 0, "R", false, 0, "")
	pdf.CellFormat(columns[3].width, rowHeight, tr(money(s.Total)), "1", 1, "R", false, 0, "")
	pdf.Ln(8)

	qr, err := GenerateSepaQR(r.Bank, fmt.Sprintf("Commande %d", s.OrderID), s.Total)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrRender, err)
	}
	if pdf.GetY()+qrSize > pageHeight-bottomMargin {
		pdf.AddPage()
	}
	y := pdf.GetY()
	opts := fpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("sepa-qr", opts, bytes.NewReader(qr))
	pdf.ImageOptions("sepa-qr", pageMargin, y, qrSize, qrSize, false, opts, 0, "")

	pdf.SetXY(pageMargin+qrSize+6, y+4)
	pdf.SetFont("Helvetica", "", 10)
	pdf.MultiCell(0, 5, tr(fmt.Sprintf("Paiement par virement SEPA\nBénéficiaire : %s\nIBAN : %s\nBIC : %s\nCommunication : Commande %d",
		r.Bank.Name, r.Bank.IBAN, r.Bank.BIC, s.OrderID)), "", "L", false)

	if pdf.Err() {
		return nil, fmt.Errorf("%w: %v", models.ErrRender, pdf.Error())
	}

	pages := pdf.PageNo()
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrRender, err)
	}

	return &Document{
		Filename: fmt.Sprintf("facture_%d.pdf", s.OrderID),
		Data:     buf.Bytes(),
		Pages:    pages,
	}, nil
}

// fit tronque le texte pour tenir dans la largeur donnée ; retourne le texte déjà traduit
func fit(pdf *fpdf.Fpdf, tr func(string) string, text string, width float64) string {
	if pdf.GetStringWidth(tr(text)) <= width {
		return tr(text)
	}
	r := []rune(text)
	for len(r) > 0 && pdf.GetStringWidth(tr(string(r)+"...")) > width {
		r = r[:len(r)-1]
	}
	return tr(string(r) + "...")
}
