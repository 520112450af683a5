package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Product is a catalog item as persisted.
type Product struct {
	bun.BaseModel `bun:"table:products,alias:p"`

	ID           uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	Name         string    `bun:"name,notnull" json:"name"`
	Price        float64   `bun:"price,notnull" json:"price"`
	OldPrice     *float64  `bun:"old_price" json:"oldPrice"`
	Category     string    `bun:"category,notnull" json:"category"`
	Images       []string  `bun:"images" json:"images"`
	IsTrending   bool      `bun:"is_trending,notnull,default:false" json:"isTrending"`
	IsTopProduct bool      `bun:"is_top_product,notnull,default:false" json:"isTopProduct"`
	Description  string    `bun:"description,notnull,default:''" json:"description"`
	Rating       float64   `bun:"rating,notnull,default:0" json:"rating"`
	Stock        int       `bun:"stock,notnull,default:0" json:"stock"`
	Tags         []string  `bun:"tags" json:"tags"`
	Brand        string    `bun:"brand,notnull,default:''" json:"brand"`
	Weight       float64   `bun:"weight,notnull,default:0" json:"weight"`
	Dimensions   string    `bun:"dimensions,notnull,default:''" json:"dimensions"`
	SKU          *string   `bun:"sku,unique" json:"sku,omitempty"`
	CreatedAt    time.Time `bun:"created_at,notnull" json:"createdAt"`
	UpdatedAt    time.Time `bun:"updated_at,notnull" json:"updatedAt"`
}

// Summary is the listing projection of a Product.
type Summary struct {
	ID           uuid.UUID `bun:"id" json:"id"`
	Name         string    `bun:"name" json:"name"`
	Price        float64   `bun:"price" json:"price"`
	OldPrice     *float64  `bun:"old_price" json:"oldPrice"`
	Category     string    `bun:"category" json:"category"`
	Images       []string  `bun:"images" json:"images"`
	IsTrending   bool      `bun:"is_trending" json:"isTrending"`
	IsTopProduct bool      `bun:"is_top_product" json:"isTopProduct"`
	Description  string    `bun:"description" json:"description"`
	Rating       float64   `bun:"rating" json:"rating"`
	CreatedAt    time.Time `bun:"created_at" json:"createdAt"`
}

// SummaryColumns lists the columns selected for a Summary.
var SummaryColumns = []string{
	"id", "name", "price", "old_price", "category", "images",
	"is_trending", "is_top_product", "description", "rating", "created_at",
}

// Summarize projects p onto its listing fields.
func (p *Product) Summarize() Summary {
	images := p.Images
	if images == nil {
		images = []string{}
	}
	return Summary{
		ID:           p.ID,
		Name:         p.Name,
		Price:        p.Price,
		OldPrice:     p.OldPrice,
		Category:     p.Category,
		Images:       images,
		IsTrending:   p.IsTrending,
		IsTopProduct: p.IsTopProduct,
		Description:  p.Description,
		Rating:       p.Rating,
		CreatedAt:    p.CreatedAt,
	}
}

// Pagination describes the position of a page within a listing.
type Pagination struct {
	CurrentPage   int  `json:"currentPage"`
	TotalPages    int  `json:"totalPages"`
	TotalProducts int  `json:"totalProducts"`
	HasNext       bool `json:"hasNext"`
	HasPrev       bool `json:"hasPrev"`
}

// NewPagination computes page metadata for total records split by limit.
func NewPagination(page, limit, total int) Pagination {
	totalPages := 0
	if limit > 0 {
		totalPages = (total + limit - 1) / limit
	}
	return Pagination{
		CurrentPage:   page,
		TotalPages:    totalPages,
		TotalProducts: total,
		HasNext:       page < totalPages,
		HasPrev:       page > 1,
	}
}

// Listing is one computed page of products.
type Listing struct {
	Products   []Summary  `json:"products"`
	Pagination Pagination `json:"pagination"`
}

// CategoryCount is the number of products in a category.
type CategoryCount struct {
	Category string `bun:"category" json:"_id"`
	Count    int    `bun:"count" json:"count"`
}

// PriceStats aggregates product prices.
type PriceStats struct {
	Average float64 `bun:"avg_price" json:"averagePrice"`
	Min     float64 `bun:"min_price" json:"minPrice"`
	Max     float64 `bun:"max_price" json:"maxPrice"`
}

// RatingStats aggregates product ratings.
type RatingStats struct {
	Average float64 `bun:"avg_rating" json:"averageRating"`
	Count   int     `bun:"total_rated" json:"totalRated"`
}

// Stats is the admin overview of the catalog.
type Stats struct {
	TotalProducts    int             `json:"totalProducts"`
	TrendingProducts int             `json:"trendingProducts"`
	TopProducts      int             `json:"topProducts"`
	RecentProducts   int             `json:"recentProducts"`
	CategoryStats    []CategoryCount `json:"categoryStats"`
	PriceStats       PriceStats      `json:"priceStats"`
	RatingStats      RatingStats     `json:"ratingStats"`
}
