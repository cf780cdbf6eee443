package invoice

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/skip2/go-qrcode"
)

type BankDetails struct {
	Name string
	IBAN string
	BIC  string
}

// SepaPayload construit le contenu EPC069-12 d'un virement SEPA
func SepaPayload(bank BankDetails, reference string, amount decimal.Decimal) string {
	lines := []string{
		"BCD",
		"002",
		"1",
		"SCT",
		bank.BIC,
		truncate(bank.Name, 70),
		strings.ReplaceAll(bank.IBAN, " ", ""),
		"EUR" + amount.StringFixed(2),
		"",
		"",
		truncate(reference, 140),
	}
	return strings.Join(lines, "\n")
}

// GenerateSepaQR retourne le QR code du virement en PNG
func GenerateSepaQR(bank BankDetails, reference string, amount decimal.Decimal) ([]byte, error) {
	png, err := qrcode.Encode(SepaPayload(bank, reference, amount), qrcode.Medium, 256)
	if err != nil {
		return nil, fmt.Errorf("génération QR SEPA: %w", err)
	}
	return png, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
