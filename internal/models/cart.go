package models

// CartLine is one product line in an identity's cart.
type CartLine struct {
	ID        string          `json:"id,omitempty"`
	ProductID string          `json:"productId" validate:"required"`
	Product   ProductSnapshot `json:"product"`
	Quantity  int             `json:"quantity" validate:"gte=1"`
}

// FavoriteEntry records that an identity marked a product as favorite.
type FavoriteEntry struct {
	ID        string          `json:"id,omitempty"`
	ProductID string          `json:"productId"`
	Product   ProductSnapshot `json:"product"`
	CreatedAt string          `json:"createdAt"`
}
