package flows

import (
	"strings"

	"github.com/oshocks/bikeshop/pkg/forms"
)

// Counties are Kenya's 47 counties.
var Counties = []string{
	"Baringo", "Bomet", "Bungoma", "Busia", "Elgeyo-Marakwet", "Embu",
	"Garissa", "Homa Bay", "Isiolo", "Kajiado", "Kakamega", "Kericho",
	"Kiambu", "Kilifi", "Kirinyaga", "Kisii", "Kisumu", "Kitui", "Kwale",
	"Laikipia", "Lamu", "Machakos", "Makueni", "Mandera", "Marsabit", "Meru",
	"Migori", "Mombasa", "Murang'a", "Nairobi", "Nakuru", "Nandi", "Narok",
	"Nyamira", "Nyandarua", "Nyeri", "Samburu", "Siaya", "Taita-Taveta",
	"Tana River", "Tharaka-Nithi", "Trans Nzoia", "Turkana", "Uasin Gishu",
	"Vihiga", "Wajir", "West Pokot",
}

var countyOptions = forms.Options(Counties...)

// KRA PINs are a letter, nine digits and a letter, e.g. A123456789B.
var kraPIN = forms.Pattern(`^[AaPp]\d{9}[A-Za-z]$`, "Enter a valid KRA PIN (e.g. A123456789B)")

// National ID numbers are seven or eight digits.
var nationalID = forms.Pattern(`^\d{7,8}$`, "Enter a valid national ID number")

// Kenyan number plates, e.g. KDA 123A or KMFB 123C for motorcycles.
var numberPlate = forms.Pattern(`^(?i)K[A-Z]{2,3}\s?\d{3}[A-Z]?$`, "Enter a valid number plate (e.g. KDA 123A)")

// NormalizePhone turns 07XXXXXXXX and 01XXXXXXXX into +254 form.
func NormalizePhone(s string) string {
	s = forms.NormalizePhone(s)
	if strings.HasPrefix(s, "0") && len(s) == 10 {
		return "+254" + s[1:]
	}
	return s
}

func trim(s string) string {
	return strings.TrimSpace(s)
}
