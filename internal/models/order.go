package models

import (
	"strings"
	"time"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderConfirmed OrderStatus = "confirmed"
	OrderShipped   OrderStatus = "shipped"
	OrderDelivered OrderStatus = "delivered"
	OrderCancelled OrderStatus = "cancelled"
)

// Valid reports whether s is a known order status.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderConfirmed, OrderShipped, OrderDelivered, OrderCancelled:
		return true
	}
	return false
}

// ShippingAddress is where an order is delivered.
type ShippingAddress struct {
	FirstName  string `json:"firstName" validate:"required"`
	LastName   string `json:"lastName"`
	Street     string `json:"street" validate:"required"`
	City       string `json:"city" validate:"required"`
	PostalCode string `json:"postalCode"`
	Phone      string `json:"phone"`
}

// Order represents a customer order. Items and Total never change after creation.
type Order struct {
	ID              string          `json:"id,omitempty"`
	UserID          string          `json:"userId"`
	Items           []CartLine      `json:"items"`
	Total           float64         `json:"total"`
	Status          OrderStatus     `json:"status"`
	ShippingAddress ShippingAddress `json:"shippingAddress"`
	PaymentMethod   string          `json:"paymentMethod"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// ShippingName is the recipient's display name.
func (o Order) ShippingName() string {
	return strings.TrimSpace(o.ShippingAddress.FirstName + " " + o.ShippingAddress.LastName)
}

// OrderDraft is the data a user submits to create an order.
type OrderDraft struct {
	Items           []CartLine      `json:"items" validate:"required,min=1,dive"`
	Total           float64         `json:"total" validate:"gte=0"`
	ShippingAddress ShippingAddress `json:"shippingAddress"`
	PaymentMethod   string          `json:"paymentMethod" validate:"required"`
}

// OrderEvent is published when an order is created or changes status.
type OrderEvent struct {
	Type    string      `json:"type"`
	OrderID string      `json:"orderId"`
	UserID  string      `json:"userId"`
	Status  OrderStatus `json:"status"`
	Total   float64     `json:"total,omitempty"`
	At      time.Time   `json:"at"`
}

const (
	EventOrderCreated       = "order.created"
	EventOrderStatusUpdated = "order.status_updated"
)
