package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	RoleAdmin = "admin"
	RoleStore = "store"
	RoleUser  = "user"
)

// PaymentRoles may see pending payments and receive order alerts.
var PaymentRoles = []string{RoleAdmin, RoleStore}

func CanViewPayments(role string) bool {
	return role == RoleAdmin || role == RoleStore
}

// Order mirrors the storefront's order document. JSON names follow the
// storefront so the same payload can be stored and published unchanged.
type Order struct {
	ID              string          `gorm:"primaryKey;size:64"                                    json:"id"`
	Items           []OrderItem     `gorm:"serializer:json"                                       json:"items"`
	TotalPrice      decimal.Decimal `gorm:"type:numeric(12,2);not null"                           json:"totalPrice"`
	Customer        Customer        `gorm:"serializer:json"                                       json:"customer"`
	ClientName      string          `gorm:"size:255"                                              json:"clientName,omitempty"`
	PaymentProof    *PaymentProof   `gorm:"serializer:json"                                       json:"pagoMovil,omitempty"`
	Status          OrderStatus     `gorm:"size:32;not null;index:idx_orders_status_created,priority:1" json:"status"`
	RejectionReason string          `json:"rejectionReason,omitempty"`
	Notes           string          `json:"notes,omitempty"`
	CreatedAt       time.Time       `gorm:"index:idx_orders_status_created,priority:2,sort:desc"  json:"createdAt"`
	VerifiedAt      *time.Time      `json:"verifiedAt,omitempty"`
	UpdatedAt       *time.Time      `gorm:"autoUpdateTime:false"                                  json:"updatedAt,omitempty"`
}

type OrderItem struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Price         decimal.Decimal `json:"price"`
	Quantity      int             `json:"quantity"`
	SelectedSize  string          `json:"selectedSize,omitempty"`
	SelectedColor string          `json:"selectedColor,omitempty"`
}

type Customer struct {
	Name           string `json:"name"`
	Phone          string `json:"phone"`
	Address        string `json:"address"`
	Email          string `json:"email,omitempty"`
	DeliveryMethod string `json:"deliveryMethod"`
}

const (
	DeliveryPickup   = "pickup"
	DeliveryDelivery = "delivery"
	DeliveryShipment = "shipment"
)

type PaymentProof struct {
	Bank            string `json:"bancoOrigen"`
	Phone           string `json:"telefonoOrigen"`
	PayerID         string `json:"cedulaTitular"`
	ReferenceNumber string `json:"numeroReferencia"`
	PaymentDate     string `json:"fechaPago"`
}

// DisplayName is the name shown in alerts and prompts.
func (o *Order) DisplayName() string {
	if o.Customer.Name != "" {
		return o.Customer.Name
	}
	if o.ClientName != "" {
		return o.ClientName
	}
	return "Cliente"
}

func (o *Order) Reference() string {
	if o.PaymentProof == nil {
		return ""
	}
	return o.PaymentProof.ReferenceNumber
}

type Product struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"        json:"id"`
	Name        string          `gorm:"not null"                    json:"name"`
	Description string          `gorm:"not null"                    json:"description"`
	Price       decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
	Categories  []string        `gorm:"serializer:json"             json:"categories"`
	ImageURL    string          `json:"imageUrl"`
	Images      []string        `gorm:"serializer:json"             json:"images"`
	Sizes       []string        `gorm:"serializer:json"             json:"sizes"`
	Gender      string          `gorm:"size:16;not null"            json:"gender"`
	Featured    bool            `gorm:"default:false"               json:"featured"`
	CreatedAt   time.Time       `json:"createdAt"`
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

type User struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"          json:"id"`
	Email         string    `gorm:"uniqueIndex;not null"          json:"email"`
	DisplayName   string    `json:"name"`
	PasswordHash  string    `json:"-"`
	GoogleSubject string    `gorm:"index"                         json:"-"`
	Role          string    `gorm:"size:16;not null;default:user" json:"role"`
	CreatedAt     time.Time `json:"created_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

type RefreshToken struct {
	ID        uint      `gorm:"primaryKey"          json:"id"`
	Token     string    `gorm:"uniqueIndex;not null" json:"-"`
	UserID    uuid.UUID `gorm:"type:uuid;index;not null" json:"user_id"`
	SessionID string    `gorm:"index;not null"      json:"session_id"`
	JTI       string    `gorm:"uniqueIndex;not null" json:"jti"`
	ExpiresAt int64     `gorm:"not null"            json:"expires_at"`
	Revoked   bool      `gorm:"default:false"       json:"revoked"`
}

// All lists every table the dashboard migrates.
func All() []any {
	return []any{&Order{}, &Product{}, &User{}, &RefreshToken{}}
}
