package service

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/casetrack-api/internal/models"
	appErrors "github.com/noah-isme/casetrack-api/pkg/errors"
)

var (
	fieldValidator = validator.New()
	nonDigits      = regexp.MustCompile(`\D`)
)

// fieldParser validates a raw value and returns what is written plus its audit rendering.
type fieldParser func(raw *string) (value interface{}, display *string, err error)

type clientField struct {
	column  string
	parse   fieldParser
	current func(c *models.Client) *string
}

type companyField struct {
	column  string
	parse   fieldParser
	current func(c *models.Company) *string
}

var clientFields = map[string]clientField{
	"name":  {column: "name", parse: requiredText("name"), current: func(c *models.Client) *string { return strPtr(c.Name) }},
	"phone": {column: "phone", parse: phoneDigits, current: func(c *models.Client) *string { return strPtr(c.Phone) }},
	"email": {column: "email", parse: optionalEmail, current: func(c *models.Client) *string { return c.Email }},
	"taxId": {column: "tax_id", parse: optionalDigits("taxId", 11), current: func(c *models.Client) *string { return c.TaxID }},
}

var companyFields = map[string]companyField{
	"legalName":     {column: "legal_name", parse: requiredText("legalName"), current: func(c *models.Company) *string { return strPtr(c.LegalName) }},
	"tradeName":     {column: "trade_name", parse: requiredText("tradeName"), current: func(c *models.Company) *string { return strPtr(c.TradeName) }},
	"registryId":    {column: "registry_id", parse: optionalDigits("registryId", 14), current: func(c *models.Company) *string { return c.RegistryID }},
	"mainActivity":  {column: "main_activity", parse: requiredText("mainActivity"), current: func(c *models.Company) *string { return strPtr(c.MainActivity) }},
	"shareCapital":  {column: "share_capital", parse: optionalAmount, current: func(c *models.Company) *string { return formatAmount(c.ShareCapital) }},
	"addressStreet": {column: "address_street", parse: optionalText, current: func(c *models.Company) *string { return c.AddressStreet }},
	"addressCity":   {column: "address_city", parse: optionalText, current: func(c *models.Company) *string { return c.AddressCity }},
}

func requiredText(name string) fieldParser {
	return func(raw *string) (interface{}, *string, error) {
		if raw == nil || strings.TrimSpace(*raw) == "" {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, name+" is required")
		}
		v := strings.TrimSpace(*raw)
		return v, &v, nil
	}
}

func optionalText(raw *string) (interface{}, *string, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil, nil
	}
	v := strings.TrimSpace(*raw)
	return v, &v, nil
}

func optionalEmail(raw *string) (interface{}, *string, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil, nil
	}
	v := strings.ToLower(strings.TrimSpace(*raw))
	if err := fieldValidator.Var(v, "email"); err != nil {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "email is invalid")
	}
	return v, &v, nil
}

func optionalDigits(name string, length int) fieldParser {
	return func(raw *string) (interface{}, *string, error) {
		if raw == nil || strings.TrimSpace(*raw) == "" {
			return nil, nil, nil
		}
		v := nonDigits.ReplaceAllString(*raw, "")
		if len(v) != length {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, name+" must have "+strconv.Itoa(length)+" digits")
		}
		return v, &v, nil
	}
}

func phoneDigits(raw *string) (interface{}, *string, error) {
	if raw == nil {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "phone is required")
	}
	v, err := NormalizePhone(*raw)
	if err != nil {
		return nil, nil, err
	}
	return v, &v, nil
}

func optionalAmount(raw *string) (interface{}, *string, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil, nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(*raw), 64)
	if err != nil || f < 0 {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "shareCapital must be a non-negative number")
	}
	return f, formatAmount(&f), nil
}

func formatAmount(f *float64) *string {
	if f == nil {
		return nil
	}
	return strPtr(strconv.FormatFloat(*f, 'f', 2, 64))
}

// NormalizePhone strips formatting and checks the digit count.
func NormalizePhone(raw string) (string, error) {
	digits := nonDigits.ReplaceAllString(raw, "")
	if len(digits) < 10 || len(digits) > 13 {
		return "", appErrors.Clone(appErrors.ErrValidation, "phone must have between 10 and 13 digits")
	}
	return digits, nil
}
