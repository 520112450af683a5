package catalog

import (
	"math"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// finite rejects NaN and infinities, which pass range rules and cannot be
// encoded as JSON.
var finite = validation.By(func(value any) error {
	v, isNil := validation.Indirect(value)
	if isNil {
		return nil
	}
	if f, ok := v.(float64); ok && (math.IsNaN(f) || math.IsInf(f, 0)) {
		return validation.NewError("validation_finite", "must be a finite number")
	}
	return nil
})

// ProductInput carries the fields of a create or update request. Nil fields
// are absent: Create applies model defaults, Update leaves them unchanged.
type ProductInput struct {
	Name         *string
	Price        *float64
	OldPrice     *float64
	Category     *string
	Images       []string
	IsTrending   *bool
	IsTopProduct *bool
	Description  *string
	Rating       *float64
	Stock        *int
	Tags         []string
	Brand        *string
	Weight       *float64
	Dimensions   *string
	SKU          *string
}

// validateCreate checks the fields a new product cannot do without.
func (in ProductInput) validateCreate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.Required),
		validation.Field(&in.Price, validation.NotNil),
		validation.Field(&in.Category, validation.Required),
	)
}

// apply copies the present fields onto p.
func (in ProductInput) apply(p *Product) {
	if in.Name != nil {
		p.Name = strings.TrimSpace(*in.Name)
	}
	if in.Price != nil {
		p.Price = *in.Price
	}
	if in.OldPrice != nil {
		// a zero old price means there is no previous price
		if *in.OldPrice == 0 {
			p.OldPrice = nil
		} else {
			v := *in.OldPrice
			p.OldPrice = &v
		}
	}
	if in.Category != nil {
		p.Category = strings.TrimSpace(*in.Category)
	}
	if in.Images != nil {
		p.Images = cleanImages(in.Images)
	}
	if in.IsTrending != nil {
		p.IsTrending = *in.IsTrending
	}
	if in.IsTopProduct != nil {
		p.IsTopProduct = *in.IsTopProduct
	}
	if in.Description != nil {
		p.Description = strings.TrimSpace(*in.Description)
	}
	if in.Rating != nil {
		p.Rating = *in.Rating
	}
	if in.Stock != nil {
		p.Stock = *in.Stock
	}
	if in.Tags != nil {
		p.Tags = cleanTags(in.Tags)
	}
	if in.Brand != nil {
		p.Brand = strings.TrimSpace(*in.Brand)
	}
	if in.Weight != nil {
		p.Weight = *in.Weight
	}
	if in.Dimensions != nil {
		p.Dimensions = *in.Dimensions
	}
	if in.SKU != nil {
		sku := strings.TrimSpace(*in.SKU)
		if sku == "" {
			p.SKU = nil
		} else {
			p.SKU = &sku
		}
	}
}

func cleanImages(images []string) []string {
	out := make([]string, 0, len(images))
	for _, img := range images {
		if img = strings.TrimSpace(img); img != "" {
			out = append(out, img)
		}
	}
	return out
}

func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

// Validate checks the stored invariants of a product.
func (p *Product) Validate() error {
	return validation.ValidateStruct(p,
		validation.Field(&p.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&p.Price, finite, validation.Min(0.0)),
		validation.Field(&p.OldPrice, finite, validation.Min(0.0)),
		validation.Field(&p.Category, validation.Required, validation.Length(1, 100)),
		validation.Field(&p.Images, validation.Each(validation.Length(1, 2048))),
		validation.Field(&p.Rating, finite, validation.Min(0.0), validation.Max(5.0)),
		validation.Field(&p.Stock, validation.Min(0)),
		validation.Field(&p.Weight, finite, validation.Min(0.0)),
		validation.Field(&p.SKU, validation.Length(1, 64)),
	)
}
