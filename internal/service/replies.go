package service

import (
	"strings"

	"github.com/lumacart/chatwidget/internal/domain"
)

// Reply is one scripted assistant turn
type Reply struct {
	Text          string
	Payload       domain.Payload
	OrderSnapshot *domain.OrderSummary
	Suggestions   []string
}

// scriptReply maps a user utterance onto a canned assistant turn. The
// keyword script covers the payload variants the widget renders: order
// tracking, product browsing, and support tickets.
func scriptReply(text string) Reply {
	lower := strings.ToLower(text)

	switch {
	case containsAny(lower, "track", "where is my order", "order status", "delivery"):
		order := domain.OrderSummary{
			ShortID:   "LC-1042",
			Status:    "in transit",
			Total:     129.90,
			ItemCount: 3,
		}
		return Reply{
			Text: "Here is the latest on your order LC-1042:",
			Payload: domain.NewTimelinePayload([]domain.TimelineStep{
				{Label: "Order placed", Done: true},
				{Label: "Packed", Done: true},
				{Label: "Shipped", Done: true},
				{Label: "Out for delivery", Done: false},
				{Label: "Delivered", Done: false},
			}),
			OrderSnapshot: &order,
			Suggestions:   []string{"When will it arrive?", "Cancel an order", "Talk to support"},
		}

	case containsAny(lower, "deal", "browse", "product", "recommend", "buy", "shop"):
		return Reply{
			Text: "These are popular right now:",
			Payload: domain.NewProductsPayload([]domain.ProductSummary{
				{ID: "p-301", Title: "Wireless Earbuds Pro", Price: 79.99, OldPrice: 99.99, Discount: 20, InStock: true, Brand: "Soundline"},
				{ID: "p-117", Title: "Smart Kettle 1.7L", Price: 45.50, InStock: true, Brand: "Brewmate"},
				{ID: "p-482", Title: "Trail Runner Shoes", Price: 89.00, OldPrice: 120.00, Discount: 26, InStock: false, Brand: "Peakform"},
			}),
			Suggestions: []string{"Show more deals", "Track my order"},
		}

	case containsAny(lower, "cancel", "refund", "support", "ticket", "complaint", "problem"):
		return Reply{
			Text:        "I've opened a support ticket for you. An agent will follow up shortly.",
			Payload:     domain.NewTicketPayload("T-42"),
			Suggestions: []string{"Check ticket status", "Track my order"},
		}

	case containsAny(lower, "my order", "order"):
		order := domain.OrderSummary{
			ShortID:   "LC-1042",
			Status:    "in transit",
			Total:     129.90,
			ItemCount: 3,
		}
		return Reply{
			Text:          "I found your most recent order:",
			Payload:       domain.NewOrderPayload(order),
			OrderSnapshot: &order,
			Suggestions:   []string{"Track my order", "Cancel an order"},
		}

	default:
		return Reply{
			Text:        "I can help you track orders, browse deals, or reach support. What would you like to do?",
			Suggestions: domain.DefaultQuickReplies(),
		}
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
