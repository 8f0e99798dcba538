package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Sender identifies who produced a message
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// Message represents one immutable conversational turn
type Message struct {
	ID        string    `json:"id,omitempty"`
	Sender    Sender    `json:"sender"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Payload   Payload   `json:"payload,omitempty"`
}

// PayloadKind tags the payload variant carried by a message
type PayloadKind string

const (
	PayloadNone     PayloadKind = ""
	PayloadProducts PayloadKind = "products"
	PayloadOrder    PayloadKind = "order"
	PayloadTimeline PayloadKind = "timeline"
	PayloadTicket   PayloadKind = "ticket"
)

// Payload is the structured attachment of a message. Exactly one variant
// is populated, selected by Kind; PayloadNone means plain text only.
type Payload struct {
	Kind     PayloadKind
	Products []ProductSummary
	Order    *OrderSummary
	Timeline []TimelineStep
	TicketID string
}

// ProductSummary is a denormalized product card entry
type ProductSummary struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Price    float64 `json:"price"`
	OldPrice float64 `json:"oldPrice,omitempty"`
	Discount int     `json:"discount,omitempty"`
	InStock  bool    `json:"inStock"`
	Brand    string  `json:"brand,omitempty"`
	Image    string  `json:"image,omitempty"`
}

// OrderSummary is a denormalized summary of an order under discussion
type OrderSummary struct {
	ShortID   string  `json:"shortId"`
	Status    string  `json:"status"`
	Total     float64 `json:"total"`
	ItemCount int     `json:"itemCount"`
}

// TimelineStep is one entry of an order-status progress track
type TimelineStep struct {
	Label string `json:"label"`
	Done  bool   `json:"done"`
}

// payloadWire is the flat shape the chatbot backend speaks: a type tag
// plus independently optional variant fields.
type payloadWire struct {
	Type     PayloadKind      `json:"type,omitempty"`
	Products []ProductSummary `json:"products,omitempty"`
	Order    *OrderSummary    `json:"order,omitempty"`
	Timeline []TimelineStep   `json:"timeline,omitempty"`
	TicketID string           `json:"ticketId,omitempty"`
}

// NewProductsPayload builds a product-list payload
func NewProductsPayload(items []ProductSummary) Payload {
	return Payload{Kind: PayloadProducts, Products: items}
}

// NewOrderPayload builds an order-card payload
func NewOrderPayload(order OrderSummary) Payload {
	return Payload{Kind: PayloadOrder, Order: &order}
}

// NewTimelinePayload builds an order-status timeline payload
func NewTimelinePayload(steps []TimelineStep) Payload {
	return Payload{Kind: PayloadTimeline, Timeline: steps}
}

// NewTicketPayload builds a support-ticket reference payload
func NewTicketPayload(ticketID string) Payload {
	return Payload{Kind: PayloadTicket, TicketID: ticketID}
}

// IsZero reports whether the payload carries no attachment
func (p Payload) IsZero() bool {
	return p.Kind == PayloadNone
}

// MarshalJSON encodes the populated variant in the flat wire shape
func (p Payload) MarshalJSON() ([]byte, error) {
	if p.Kind == PayloadNone {
		return []byte("null"), nil
	}
	w := payloadWire{Type: p.Kind}
	switch p.Kind {
	case PayloadProducts:
		w.Products = p.Products
	case PayloadOrder:
		w.Order = p.Order
	case PayloadTimeline:
		w.Timeline = p.Timeline
	case PayloadTicket:
		w.TicketID = p.TicketID
	default:
		return nil, fmt.Errorf("unknown payload kind %q", p.Kind)
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes the flat wire shape, inferring the tag from the
// populated field when the backend omits it, and rejecting payloads that
// populate more than one variant.
func (p *Payload) UnmarshalJSON(data []byte) error {
	*p = Payload{}
	if len(data) == 0 || string(data) == "null" {
		return nil
	}

	var w payloadWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	populated := 0
	kind := w.Type
	if len(w.Products) > 0 {
		populated++
		if kind == PayloadNone {
			kind = PayloadProducts
		}
	}
	if w.Order != nil {
		populated++
		if kind == PayloadNone {
			kind = PayloadOrder
		}
	}
	if len(w.Timeline) > 0 {
		populated++
		if kind == PayloadNone {
			kind = PayloadTimeline
		}
	}
	if w.TicketID != "" {
		populated++
		if kind == PayloadNone {
			kind = PayloadTicket
		}
	}

	if populated > 1 {
		return fmt.Errorf("%w: payload populates %d variants", ErrInvalidPayload, populated)
	}
	if kind == PayloadNone {
		return nil
	}

	p.Kind = kind
	switch kind {
	case PayloadProducts:
		p.Products = w.Products
	case PayloadOrder:
		p.Order = w.Order
	case PayloadTimeline:
		p.Timeline = w.Timeline
	case PayloadTicket:
		p.TicketID = w.TicketID
	default:
		return fmt.Errorf("%w: unknown payload type %q", ErrInvalidPayload, kind)
	}
	return nil
}
