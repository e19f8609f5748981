package verification

import (
	"fmt"
	"time"
)

var bankNames = map[string]string{
	"mercantil":          "Mercantil",
	"banesco":            "Banesco",
	"bdv":                "Banco de Venezuela",
	"provincial":         "Provincial",
	"bnc":                "BNC",
	"bicentenario":       "Bicentenario",
	"exterior":           "Exterior",
	"bancaribe":          "Bancaribe",
	"venezolano_credito": "Venezolano de Crédito",
	"banplus":            "Banplus",
	"fondo_comun":        "Fondo Común",
	"100_banco":          "100% Banco",
	"sofitasa":           "Sofitasa",
	"activo":             "Activo",
	"otro":               "Otro",
}

// BankName resolves a storefront bank code. Unknown codes are shown as is.
func BankName(code string) string {
	if code == "" {
		return "N/A"
	}
	if name, ok := bankNames[code]; ok {
		return name
	}
	return code
}

var shortMonths = [...]string{"ene", "feb", "mar", "abr", "may", "jun", "jul", "ago", "sept", "oct", "nov", "dic"}

// FormatDate renders t like "05 ene 2025, 14:30" in loc.
func FormatDate(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return "N/A"
	}
	if loc != nil {
		t = t.In(loc)
	}
	return fmt.Sprintf("%02d %s %d, %02d:%02d", t.Day(), shortMonths[t.Month()-1], t.Year(), t.Hour(), t.Minute())
}
