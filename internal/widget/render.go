package widget

import (
	"fmt"
	"strings"

	"github.com/lumacart/chatwidget/internal/domain"
)

const typingIndicator = "assistant is typing..."

// RenderMessage formats one conversational turn as terminal text,
// including its payload card when present.
func RenderMessage(msg domain.Message) string {
	var b strings.Builder

	label := "you"
	if msg.Sender == domain.SenderBot {
		label = "assistant"
	}
	fmt.Fprintf(&b, "[%s] %s  %s\n", msg.Timestamp.Format("15:04"), label, msg.Message)

	if card := RenderPayload(msg.Payload); card != "" {
		b.WriteString(indent(card, "    "))
	}
	return b.String()
}

// RenderPayload formats a payload card, or returns "" for plain text.
func RenderPayload(p domain.Payload) string {
	switch p.Kind {
	case domain.PayloadProducts:
		return renderProducts(p.Products)
	case domain.PayloadOrder:
		return renderOrder(*p.Order)
	case domain.PayloadTimeline:
		return renderTimeline(p.Timeline)
	case domain.PayloadTicket:
		return renderTicket(p.TicketID)
	default:
		return ""
	}
}

func renderProducts(items []domain.ProductSummary) string {
	var b strings.Builder
	for i, item := range items {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%s", item.Title)
		if item.Brand != "" {
			fmt.Fprintf(&b, " — %s", item.Brand)
		}
		b.WriteString("\n")
		fmt.Fprintf(&b, "  $%.2f", item.Price)
		if item.OldPrice > item.Price {
			fmt.Fprintf(&b, "  (was $%.2f", item.OldPrice)
			if item.Discount > 0 {
				fmt.Fprintf(&b, ", -%d%%", item.Discount)
			}
			b.WriteString(")")
		}
		if !item.InStock {
			b.WriteString("  out of stock")
		}
		b.WriteString("\n")
	}
	return b.String()
}

func renderOrder(o domain.OrderSummary) string {
	return fmt.Sprintf("Order %s  [%s]\n  %d item(s), $%.2f total\n",
		o.ShortID, strings.ToUpper(o.Status), o.ItemCount, o.Total)
}

// renderTimeline draws the step track with a connecting line between
// consecutive steps.
func renderTimeline(steps []domain.TimelineStep) string {
	var b strings.Builder
	for i, step := range steps {
		mark := " "
		if step.Done {
			mark = "x"
		}
		fmt.Fprintf(&b, "[%s] %s\n", mark, step.Label)
		if i < len(steps)-1 {
			b.WriteString(" |\n")
		}
	}
	return b.String()
}

func renderTicket(id string) string {
	return fmt.Sprintf("Ticket #%s\n", id)
}

// RenderOrderSnapshot formats the persistent context bar shown while an
// order is under discussion.
func RenderOrderSnapshot(o domain.OrderSummary) string {
	return fmt.Sprintf("— discussing order %s (%s, %d item(s), $%.2f) —",
		o.ShortID, o.Status, o.ItemCount, o.Total)
}

// RenderSuggestions formats quick replies as numbered affordances.
func RenderSuggestions(suggestions []string) string {
	if len(suggestions) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("quick replies:")
	for i, s := range suggestions {
		fmt.Fprintf(&b, "  [%d] %s", i+1, s)
	}
	b.WriteString("\n")
	return b.String()
}

func indent(s, prefix string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n") + "\n"
}
