package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type OrderStatus string

const (
	OrderPending    OrderStatus = "Pending"
	OrderDispatched OrderStatus = "Dispatched"
	OrderDelivered  OrderStatus = "Delivered"
	OrderCancelled  OrderStatus = "Cancelled"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderPending:    {OrderDispatched, OrderCancelled},
	OrderDispatched: {OrderDelivered, OrderCancelled},
	OrderDelivered:  nil,
	OrderCancelled:  nil,
}

func (s OrderStatus) Valid() bool {
	_, ok := orderTransitions[s]
	return ok
}

// NextStatuses lists the statuses an order may move to from s.
func (s OrderStatus) NextStatuses() []OrderStatus {
	return orderTransitions[s]
}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type PaymentMethod string

const (
	PaymentCOD    PaymentMethod = "cod"
	PaymentCard   PaymentMethod = "card"
	PaymentPaypal PaymentMethod = "paypal"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCOD, PaymentCard, PaymentPaypal:
		return true
	}
	return false
}

type Customer struct {
	Name  string `json:"name" bson:"name"`
	Email string `json:"email" bson:"email"`
	Phone string `json:"phone" bson:"phone"`
}

type ShippingAddress struct {
	Street  string `json:"street" bson:"street"`
	City    string `json:"city" bson:"city"`
	State   string `json:"state" bson:"state"`
	Zip     string `json:"zip" bson:"zip"`
	Country string `json:"country" bson:"country,omitempty"`
}

// OrderItem is a snapshot of the product taken when the order was placed.
type OrderItem struct {
	ProductID primitive.ObjectID `json:"productId" bson:"productId"`
	Name      string             `json:"name" bson:"name"`
	Price     float64            `json:"price" bson:"price"`
	Size      string             `json:"size,omitempty" bson:"size,omitempty"`
	Color     string             `json:"color,omitempty" bson:"color,omitempty"`
	Image     string             `json:"image,omitempty" bson:"image,omitempty"`
	Quantity  int                `json:"quantity" bson:"quantity"`
}

type Order struct {
	ID              primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	OrderNumber     string             `json:"orderNumber" bson:"orderNumber"`
	Customer        Customer           `json:"customer" bson:"customer"`
	ShippingAddress ShippingAddress    `json:"shippingAddress" bson:"shippingAddress"`
	Items           []OrderItem        `json:"items" bson:"items"`
	Subtotal        float64            `json:"subtotal" bson:"subtotal"`
	ShippingCost    float64            `json:"shippingCost" bson:"shippingCost"`
	Tax             float64            `json:"tax" bson:"tax"`
	TotalAmount     float64            `json:"totalAmount" bson:"totalAmount"`
	PaymentMethod   PaymentMethod      `json:"paymentMethod" bson:"paymentMethod"`
	Status          OrderStatus        `json:"status" bson:"status"`
	StockReserved   bool               `json:"-" bson:"stockReserved"`
	Notes           string             `json:"notes,omitempty" bson:"notes,omitempty"`
	CreatedAt       time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt       time.Time          `json:"updatedAt" bson:"updatedAt"`
}
