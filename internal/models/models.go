package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Base gives every row a uuid primary key and timestamps.
type Base struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (b *Base) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// Product is this service's projection of the catalog. Quantity is the
// sellable stock and is decremented at checkout.
type Product struct {
	Base
	Name     string          `gorm:"not null"                         json:"name"`
	Price    decimal.Decimal `gorm:"type:decimal(10,2);not null"      json:"price"`
	Quantity int             `gorm:"not null;default:0;check:quantity >= 0" json:"quantity"`
	IsActive bool            `gorm:"not null"                         json:"is_active"`
}

func (Product) TableName() string { return "products" }

type City struct {
	Base
	Name string `gorm:"uniqueIndex;not null" json:"name"`
}

func (City) TableName() string { return "cities" }

type Address struct {
	Base
	UserID   uuid.UUID `gorm:"type:uuid;index;not null" json:"user_id"`
	Address1 string    `gorm:"not null"                 json:"address1"`
	Address2 string    `json:"address2,omitempty"`
	Phone    string    `json:"phone"`
	CityID   uuid.UUID `gorm:"type:uuid;not null"       json:"city_id"`
	City     City      `gorm:"foreignKey:CityID"        json:"city"`
}

func (Address) TableName() string { return "addresses" }

// DeliveryMap is a directed shipping edge between two cities.
type DeliveryMap struct {
	Base
	SourceID      uuid.UUID       `gorm:"type:uuid;not null;index"   json:"source_id"`
	Source        City            `gorm:"foreignKey:SourceID"        json:"source"`
	DestinationID uuid.UUID       `gorm:"type:uuid;not null;index"   json:"destination_id"`
	Destination   City            `gorm:"foreignKey:DestinationID"   json:"destination"`
	Cost          decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"cost"`
}

func (DeliveryMap) TableName() string { return "delivery_maps" }

const (
	StatusNew        = "NEW"
	StatusProcessing = "PROCESSING"
	StatusShipped    = "SHIPPED"
	StatusCompleted  = "COMPLETED"
	StatusRefunded   = "REFUNDED"
)

var StatusTitles = []string{StatusNew, StatusProcessing, StatusShipped, StatusCompleted, StatusRefunded}

type OrderStatus struct {
	Base
	Title     string `gorm:"uniqueIndex;not null" json:"title"`
	IsDefault bool   `gorm:"not null"       json:"is_default"`
}

func (OrderStatus) TableName() string { return "order_statuses" }

type PromoType string

const (
	PromoFixed        PromoType = "fixed"
	PromoPercentage   PromoType = "percentage"
	PromoFreeShipping PromoType = "free_shipping"
)

type Promo struct {
	Base
	Code       string          `gorm:"uniqueIndex;not null"        json:"code"`
	Name       string          `json:"name,omitempty"`
	Type       PromoType       `gorm:"not null"                    json:"type"`
	Amount     decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"amount"`
	ActiveFrom time.Time       `gorm:"not null"                    json:"active_from"`
	ActiveTill time.Time       `gorm:"not null"                    json:"active_till"`
	IsActive   bool            `gorm:"not null"                    json:"is_active"`
	// UserID restricts the promo to a single user when set.
	UserID *uuid.UUID `gorm:"type:uuid" json:"user_id,omitempty"`
}

func (Promo) TableName() string { return "promos" }

type PromoUsage struct {
	Base
	UserID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_promo_usage_user_promo" json:"user_id"`
	PromoID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_promo_usage_user_promo" json:"promo_id"`
}

func (PromoUsage) TableName() string { return "promo_usages" }

// LineItem is a cart entry while Ordered is false and an order line once
// it has been folded into an order.
type LineItem struct {
	Base
	UserID    uuid.UUID  `gorm:"type:uuid;index;not null"        json:"user_id"`
	ProductID uuid.UUID  `gorm:"type:uuid;not null"              json:"product_id"`
	Product   *Product   `gorm:"foreignKey:ProductID"            json:"product,omitempty"`
	Quantity  int        `gorm:"not null;default:1;check:quantity > 0" json:"quantity"`
	Ordered   bool       `gorm:"not null;default:false"          json:"ordered"`
	OrderID   *uuid.UUID `gorm:"type:uuid;index"                 json:"order_id,omitempty"`
}

func (LineItem) TableName() string { return "line_items" }

type Order struct {
	Base
	UserID    uuid.UUID       `gorm:"type:uuid;index;not null"   json:"user_id"`
	AddressID *uuid.UUID      `gorm:"type:uuid"                  json:"address_id,omitempty"`
	Address   *Address        `gorm:"foreignKey:AddressID"       json:"address,omitempty"`
	StatusID  uuid.UUID       `gorm:"type:uuid;not null"         json:"status_id"`
	Status    OrderStatus     `gorm:"foreignKey:StatusID"        json:"status"`
	Note      string          `gorm:"size:255"                   json:"note,omitempty"`
	RefCode   string          `gorm:"uniqueIndex;not null"       json:"ref_code"`
	Ordered   bool            `gorm:"not null;default:false"     json:"ordered"`
	Items     []LineItem      `gorm:"foreignKey:OrderID"         json:"items"`
	PromoID   *uuid.UUID      `gorm:"type:uuid"                  json:"promo_id,omitempty"`
	Promo     *Promo          `gorm:"foreignKey:PromoID"         json:"promo,omitempty"`
	Total     decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"total"`
	Shipping  decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"shipping"`
}

func (Order) TableName() string { return "orders" }
