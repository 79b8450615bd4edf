package model

// Fixed values carried by every cart-add event.
const (
	TopicUserActivity    = "user-activity"
	EventItemAddedToCart = "item_added_to_cart"
	DefaultUserID        = "unknown_user"
)

// CartEvent is published to the event collector when an item is added to a cart.
type CartEvent struct {
	Topic string        `json:"topic"`
	Event string        `json:"event"`
	Data  CartEventData `json:"data"`
}

// CartEventData identifies who added what. A nil Quantity encodes as null.
type CartEventData struct {
	UserID    string  `json:"user_id"`
	ProductID string  `json:"product_id"`
	Quantity  *string `json:"quantity"`
}

// NewCartEvent builds an item_added_to_cart event on the user-activity topic.
func NewCartEvent(userID, productID string, quantity *string) *CartEvent {
	return &CartEvent{
		Topic: TopicUserActivity,
		Event: EventItemAddedToCart,
		Data: CartEventData{
			UserID:    userID,
			ProductID: productID,
			Quantity:  quantity,
		},
	}
}
