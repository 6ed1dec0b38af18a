package flow

import "strings"

// Combining enclosing keycap. Normalization strips the variation selector
// from numbered emoji but keeps the keycap, so "1️⃣" arrives as "1⃣".
const keycapSuffix = "⃣"

var optionDigits = []string{"1", "2", "3"}

// MatchOption maps normalized text to a menu option. Priority order: keycap
// emoji, "OPCION n"/"ELIJO n" phrases, spelled-out numbers, bare digits.
func MatchOption(normalized string) (string, bool) {
	for _, digit := range optionDigits {
		if strings.Contains(normalized, digit+keycapSuffix) {
			return digit, true
		}
	}
	for _, digit := range optionDigits {
		if strings.Contains(normalized, "OPCION "+digit) || strings.Contains(normalized, "ELIJO "+digit) {
			return digit, true
		}
	}
	switch normalized {
	case "UNO", "PRIMERO":
		return "1", true
	case "DOS", "SEGUNDO":
		return "2", true
	case "TRES", "TERCERO":
		return "3", true
	case "1", "2", "3":
		return normalized, true
	}
	return "", false
}

// ServicePitch is the canned reply sent when a contact picks a service.
type ServicePitch struct {
	Title string
	Body  string
}

var serviceKeys = map[string]string{
	"ACOMPANAMIENTO LEGAL": "legal",
	"LEGAL":                "legal",
	"DISENO WEB":           "web",
	"WEB":                  "web",
	"MARKETING DIGITAL":    "marketing",
	"MARKETING":            "marketing",
	"IDENTIDAD DE MARCA":   "branding",
	"BRANDING":             "branding",
}

var servicePitches = map[string]ServicePitch{
	"legal": {
		Title: "Acompañamiento Legal 📋",
		Body:  "Te acompañamos en la constitución de tu empresa, contratos y cumplimiento normativo para que operes con tranquilidad.",
	},
	"web": {
		Title: "Diseño Web 💻",
		Body:  "Creamos sitios web modernos, rápidos y pensados para convertir visitantes en clientes.",
	},
	"marketing": {
		Title: "Marketing Digital 📈",
		Body:  "Campañas en redes sociales y buscadores con reportes claros sobre lo que funciona.",
	},
	"branding": {
		Title: "Identidad de Marca 🎨",
		Body:  "Construimos el logotipo, la paleta y la voz de tu marca para que te reconozcan a la primera.",
	},
}

// MatchService maps normalized text to a service key by exact phrase lookup.
func MatchService(normalized string) (string, bool) {
	key, ok := serviceKeys[normalized]
	return key, ok
}

// PitchFor returns the canned pitch for a matched service key.
func PitchFor(serviceKey string) (ServicePitch, bool) {
	pitch, ok := servicePitches[serviceKey]
	return pitch, ok
}
