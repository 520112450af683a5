package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/goliatone/go-storefront/catalog"
)

// Numeric and boolean fields arrive either as JSON values or as strings from
// form-style clients. A JSON null or empty string counts as present and zero,
// which clears the old price on update.

type optionalFloat struct {
	set   bool
	value float64
}

func (o *optionalFloat) UnmarshalJSON(data []byte) error {
	o.set = true
	raw, isString, err := scalar(data)
	if err != nil || raw == "" {
		return err
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		if isString {
			return fmt.Errorf("invalid number %q", raw)
		}
		return fmt.Errorf("invalid number %s", raw)
	}
	o.value = v
	return nil
}

func (o optionalFloat) ptr() *float64 {
	if !o.set {
		return nil
	}
	v := o.value
	return &v
}

type optionalInt struct {
	set   bool
	value int
}

func (o *optionalInt) UnmarshalJSON(data []byte) error {
	o.set = true
	raw, _, err := scalar(data)
	if err != nil || raw == "" {
		return err
	}
	if n, err := strconv.Atoi(raw); err == nil {
		o.value = n
		return nil
	}
	// exponent forms such as 1e3 are accepted when they name a whole number
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return fmt.Errorf("invalid integer %q", raw)
	}
	o.value = int(f)
	return nil
}

func (o optionalInt) ptr() *int {
	if !o.set {
		return nil
	}
	v := o.value
	return &v
}

type optionalBool struct {
	set   bool
	value bool
}

func (o *optionalBool) UnmarshalJSON(data []byte) error {
	o.set = true
	raw, _, err := scalar(data)
	if err != nil || raw == "" {
		return err
	}
	v, err := strconv.ParseBool(strings.ToLower(raw))
	if err != nil {
		return fmt.Errorf("invalid boolean %q", raw)
	}
	o.value = v
	return nil
}

func (o optionalBool) ptr() *bool {
	if !o.set {
		return nil
	}
	v := o.value
	return &v
}

// scalar unwraps a JSON number, bool, string or null into its trimmed text.
func scalar(data []byte) (string, bool, error) {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return "", false, nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return "", true, err
		}
		return strings.TrimSpace(s), true, nil
	}
	if len(data) > 0 && (data[0] == '{' || data[0] == '[') {
		return "", false, fmt.Errorf("expected a scalar value")
	}
	return string(data), false, nil
}

// productPayload is the JSON body accepted by create and update.
type productPayload struct {
	Name         *string       `json:"name"`
	Price        optionalFloat `json:"price"`
	OldPrice     optionalFloat `json:"oldPrice"`
	Category     *string       `json:"category"`
	Images       []string      `json:"images"`
	IsTrending   optionalBool  `json:"isTrending"`
	IsTopProduct optionalBool  `json:"isTopProduct"`
	Description  *string       `json:"description"`
	Rating       optionalFloat `json:"rating"`
	Stock        optionalInt   `json:"stock"`
	Tags         []string      `json:"tags"`
	Brand        *string       `json:"brand"`
	Weight       optionalFloat `json:"weight"`
	Dimensions   *string       `json:"dimensions"`
	SKU          *string       `json:"sku"`
}

func (p productPayload) input() catalog.ProductInput {
	return catalog.ProductInput{
		Name:         p.Name,
		Price:        p.Price.ptr(),
		OldPrice:     p.OldPrice.ptr(),
		Category:     p.Category,
		Images:       p.Images,
		IsTrending:   p.IsTrending.ptr(),
		IsTopProduct: p.IsTopProduct.ptr(),
		Description:  p.Description,
		Rating:       p.Rating.ptr(),
		Stock:        p.Stock.ptr(),
		Tags:         p.Tags,
		Brand:        p.Brand,
		Weight:       p.Weight.ptr(),
		Dimensions:   p.Dimensions,
		SKU:          p.SKU,
	}
}

// decodeProduct reads a product payload, rejecting unknown shapes.
func decodeProduct(body []byte) (catalog.ProductInput, error) {
	var payload productPayload
	if len(bytes.TrimSpace(body)) == 0 {
		return catalog.ProductInput{}, catalog.ErrInvalid("Request body is required")
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return catalog.ProductInput{}, catalog.ErrInvalid("Invalid request body: " + err.Error())
	}
	return payload.input(), nil
}
