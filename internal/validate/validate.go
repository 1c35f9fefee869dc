// Package validate holds the form rules shared by services and the gin
// binding layer. Each rule returns "" when the value is valid, otherwise the
// message shown next to the field.
package validate

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	lettersAndSpaces = regexp.MustCompile(`^[a-zA-Z ]+$`)
	phonePattern     = regexp.MustCompile(`^08\d{8,11}$`)
	digitsOnly       = regexp.MustCompile(`^\d+$`)
)

// Nama checks a person's name: required, at least 2 characters, letters and spaces.
func Nama(s string) string {
	trimmed := strings.TrimSpace(s)
	switch {
	case trimmed == "":
		return "Nama tidak boleh kosong"
	case len(trimmed) < 2:
		return "Nama minimal 2 karakter"
	case !lettersAndSpaces.MatchString(s):
		return "Nama hanya boleh huruf dan spasi"
	}
	return ""
}

// NomorHP checks a local mobile number: 08 prefix, 10-13 digits total.
func NomorHP(s string) string {
	switch {
	case strings.TrimSpace(s) == "":
		return "Nomor HP tidak boleh kosong"
	case !phonePattern.MatchString(s):
		return "Format: 08xxxxxxxxxx (10-13 digit)"
	}
	return ""
}

// FingerprintID checks a reader slot id: required, digits only.
func FingerprintID(s string) string {
	switch {
	case strings.TrimSpace(s) == "":
		return "Fingerprint ID tidak boleh kosong"
	case !digitsOnly.MatchString(s):
		return "Fingerprint ID hanya boleh angka"
	}
	return ""
}

// Required returns msg when s is blank.
func Required(s, msg string) string {
	if strings.TrimSpace(s) == "" {
		return msg
	}
	return ""
}

// Collect runs rules keyed by field name and keeps the failures.
func Collect(rules map[string]string) map[string]string {
	out := map[string]string{}
	for field, msg := range rules {
		if msg != "" {
			out[field] = msg
		}
	}
	return out
}

// Register installs the `nama`, `nomorhp` and `fingerprint` tags on v and
// makes errors report JSON field names.
func Register(v *validator.Validate) error {
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	rules := map[string]func(string) string{
		"nama":        Nama,
		"nomorhp":     NomorHP,
		"fingerprint": FingerprintID,
	}
	for tag, rule := range rules {
		rule := rule
		if err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			return rule(fl.Field().String()) == ""
		}); err != nil {
			return err
		}
	}
	return nil
}

// Messages converts binding errors into per-field messages keyed by the
// JSON field name.
func Messages(err error) map[string]string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return nil
	}
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		field := jsonName(fe.Field())
		value, _ := fe.Value().(string)
		switch fe.Tag() {
		case "nama":
			out[field] = Nama(value)
		case "nomorhp":
			out[field] = NomorHP(value)
		case "fingerprint":
			out[field] = FingerprintID(value)
		case "required":
			out[field] = field + " wajib diisi"
		case "oneof":
			out[field] = field + " harus salah satu dari: " + fe.Param()
		default:
			out[field] = field + " tidak valid"
		}
	}
	return out
}

func jsonName(field string) string {
	if field == "" {
		return field
	}
	return strings.ToLower(field[:1]) + field[1:]
}
