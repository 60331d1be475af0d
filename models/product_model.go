package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type StockStatus string

const (
	InStock    StockStatus = "in_stock"
	OutOfStock StockStatus = "out_of_stock"
	Preorder   StockStatus = "preorder"
)

type Attribute struct {
	Name  string `bson:"name" json:"name" validate:"required"`
	Value string `bson:"value" json:"value"`
}

type Variant struct {
	SKU             string      `bson:"sku" json:"sku" validate:"required"`
	Price           float64     `bson:"price" json:"price" validate:"gte=0"`
	SalePrice       *float64    `bson:"sale_price,omitempty" json:"sale_price,omitempty" validate:"omitempty,gte=0"`
	QuantityInStock int         `bson:"quantity_in_stock" json:"quantity_in_stock" validate:"gte=0"`
	Attributes      []Attribute `bson:"attributes,omitempty" json:"attributes,omitempty" validate:"dive"`
}

type Dimensions struct {
	Length float64 `bson:"length" json:"length" validate:"gte=0"`
	Width  float64 `bson:"width" json:"width" validate:"gte=0"`
	Height float64 `bson:"height" json:"height" validate:"gte=0"`
}

type Product struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Name             string             `bson:"name" json:"name" validate:"required,max=200"`
	Slug             string             `bson:"slug" json:"slug" validate:"required,max=220"`
	Description      string             `bson:"description" json:"description"`
	ShortDescription string             `bson:"short_description,omitempty" json:"short_description,omitempty" validate:"max=500"`
	Price            float64            `bson:"price" json:"price" validate:"gte=0"`
	SalePrice        *float64           `bson:"sale_price,omitempty" json:"sale_price,omitempty" validate:"omitempty,gte=0"`
	Currency         string             `bson:"currency" json:"currency" validate:"required,len=3"`
	QuantityInStock  int                `bson:"quantity_in_stock" json:"quantity_in_stock" validate:"gte=0"`
	StockStatus      StockStatus        `bson:"stock_status" json:"stock_status" validate:"oneof=in_stock out_of_stock preorder"`
	Categories       []string           `bson:"categories" json:"categories"`
	Tags             []string           `bson:"tags" json:"tags"`
	Attributes       []Attribute        `bson:"attributes" json:"attributes" validate:"dive"`
	Variants         []Variant          `bson:"variants" json:"variants" validate:"dive"`
	Dimensions       *Dimensions        `bson:"dimensions,omitempty" json:"dimensions,omitempty"`
	Images           []string           `bson:"images" json:"images"`
	Videos           []string           `bson:"videos" json:"videos" validate:"dive,url"`
	MetaTitle        string             `bson:"meta_title,omitempty" json:"meta_title,omitempty" validate:"max=70"`
	MetaDescription  string             `bson:"meta_description,omitempty" json:"meta_description,omitempty" validate:"max=160"`
	MetaKeywords     []string           `bson:"meta_keywords" json:"meta_keywords"`
	RatingAverage    float64            `bson:"rating_average" json:"rating_average"`
	RatingCount      int                `bson:"rating_count" json:"rating_count"`
	Featured         bool               `bson:"featured" json:"featured"`
	IsActive         bool               `bson:"is_active" json:"is_active"`
	CreatedAt        time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt        time.Time          `bson:"updated_at" json:"updated_at"`
}

// NewProduct returns a product carrying the schema defaults.
func NewProduct() Product {
	return Product{
		Currency:     "USD",
		StockStatus:  InStock,
		Categories:   []string{},
		Tags:         []string{},
		Attributes:   []Attribute{},
		Variants:     []Variant{},
		Images:       []string{},
		Videos:       []string{},
		MetaKeywords: []string{},
		IsActive:     true,
	}
}

// StockFields selects the stock fields a product update may overwrite.
// Unselected fields keep their stored value.
type StockFields struct {
	Quantity bool
	Status   bool
}
