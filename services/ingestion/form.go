package ingestion

import (
	"encoding/json"
	"fmt"
	"math"
	"mime/multipart"
	"strconv"
	"strings"

	"github.com/Affo25/Ecoomerce-apis/apperrors"
	"github.com/Affo25/Ecoomerce-apis/models"
)

// ProductInput is the normalized content of a product submission. A nil
// field was not supplied (or could not be parsed) and leaves the product
// untouched.
type ProductInput struct {
	Name             *string
	Slug             *string
	Description      *string
	ShortDescription *string
	Currency         *string
	StockStatus      *string
	MetaTitle        *string
	MetaDescription  *string

	Price           *float64
	SalePrice       *float64
	QuantityInStock *int

	Featured *bool
	IsActive *bool

	Categories   *[]string
	Tags         *[]string
	MetaKeywords *[]string
	Videos       *[]string
	Images       *[]string
	Dimensions   *models.Dimensions
	Attributes   *[]models.Attribute
	Variants     *[]models.Variant

	// Omitted lists JSON fields that failed to parse and were dropped.
	Omitted []string
}

// ParseForm reads the text parts of a product submission. JSON-encoded
// fields follow a parse-or-omit policy; malformed numbers are rejected.
func ParseForm(form *multipart.Form) (ProductInput, error) {
	var in ProductInput
	if form == nil {
		return in, nil
	}
	values := form.Value

	in.Name = text(values, "name")
	in.Slug = text(values, "slug")
	in.Description = text(values, "description")
	in.ShortDescription = text(values, "short_description")
	in.MetaTitle = text(values, "meta_title")
	in.MetaDescription = text(values, "meta_description")
	if c := text(values, "currency"); c != nil {
		upper := strings.ToUpper(*c)
		in.Currency = &upper
	}
	if s := text(values, "stock_status"); s != nil {
		lower := strings.ToLower(*s)
		in.StockStatus = &lower
	}

	var details []string
	var msg string
	if in.Price, msg = number(values, "price"); msg != "" {
		details = append(details, msg)
	}
	if in.SalePrice, msg = number(values, "sale_price"); msg != "" {
		details = append(details, msg)
	}
	if in.QuantityInStock, msg = integer(values, "quantity_in_stock"); msg != "" {
		details = append(details, msg)
	}
	if len(details) > 0 {
		return ProductInput{}, apperrors.Validation("Validation failed", details...)
	}

	in.Featured = boolean(values, "featured")
	in.IsActive = boolean(values, "is_active")

	in.Categories = jsonField[[]string](values, "categories", &in.Omitted)
	in.Tags = jsonField[[]string](values, "tags", &in.Omitted)
	in.MetaKeywords = jsonField[[]string](values, "meta_keywords", &in.Omitted)
	in.Videos = jsonField[[]string](values, "videos", &in.Omitted)
	in.Images = jsonField[[]string](values, "images", &in.Omitted)
	in.Dimensions = jsonField[models.Dimensions](values, "dimensions", &in.Omitted)
	in.Attributes = jsonField[[]models.Attribute](values, "attributes", &in.Omitted)
	in.Variants = jsonField[[]models.Variant](values, "variants", &in.Omitted)

	return in, nil
}

// Apply copies every supplied field onto p.
func (in ProductInput) Apply(p *models.Product) {
	setString(&p.Name, in.Name)
	setString(&p.Slug, in.Slug)
	setString(&p.Description, in.Description)
	setString(&p.ShortDescription, in.ShortDescription)
	setString(&p.Currency, in.Currency)
	setString(&p.MetaTitle, in.MetaTitle)
	setString(&p.MetaDescription, in.MetaDescription)
	if in.StockStatus != nil {
		p.StockStatus = models.StockStatus(*in.StockStatus)
	}

	if in.Price != nil {
		p.Price = *in.Price
	}
	if in.SalePrice != nil {
		sale := *in.SalePrice
		p.SalePrice = &sale
	}
	if in.QuantityInStock != nil {
		p.QuantityInStock = *in.QuantityInStock
	}
	if in.Featured != nil {
		p.Featured = *in.Featured
	}
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}

	setList(&p.Categories, in.Categories)
	setList(&p.Tags, in.Tags)
	setList(&p.MetaKeywords, in.MetaKeywords)
	setList(&p.Videos, in.Videos)
	setList(&p.Images, in.Images)
	setList(&p.Attributes, in.Attributes)
	setList(&p.Variants, in.Variants)
	if in.Dimensions != nil {
		d := *in.Dimensions
		p.Dimensions = &d
	}
}

func first(values map[string][]string, key string) (string, bool) {
	v, ok := values[key]
	if !ok || len(v) == 0 {
		return "", false
	}
	return v[0], true
}

func text(values map[string][]string, key string) *string {
	v, ok := first(values, key)
	if !ok {
		return nil
	}
	v = strings.TrimSpace(v)
	return &v
}

func number(values map[string][]string, key string) (*float64, string) {
	raw, ok := first(values, key)
	if !ok || strings.TrimSpace(raw) == "" {
		return nil, ""
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, fmt.Sprintf("%s must be a number", key)
	}
	return &v, ""
}

func integer(values map[string][]string, key string) (*int, string) {
	raw, ok := first(values, key)
	if !ok || strings.TrimSpace(raw) == "" {
		return nil, ""
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Sprintf("%s must be an integer", key)
	}
	return &v, ""
}

// boolean accepts only the literals "true" and "false".
func boolean(values map[string][]string, key string) *bool {
	raw, _ := first(values, key)
	switch strings.TrimSpace(raw) {
	case "true":
		v := true
		return &v
	case "false":
		v := false
		return &v
	default:
		return nil
	}
}

func jsonField[T any](values map[string][]string, key string, omitted *[]string) *T {
	raw, ok := first(values, key)
	if !ok || strings.TrimSpace(raw) == "" {
		return nil
	}
	var v T
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		*omitted = append(*omitted, key)
		return nil
	}
	return &v
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setList[T any](dst *[]T, v *[]T) {
	if v == nil {
		return
	}
	if *v == nil {
		*dst = []T{}
		return
	}
	*dst = append([]T{}, (*v)...)
}
