package notify

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
)

// EventType enumerates the fixed vocabulary of lifecycle and delivery
// events that produce push notifications.
type EventType string

const (
	EventSaleOpen          EventType = "sale_open"
	EventSaleClosed        EventType = "sale_closed"
	EventSaleDeleted       EventType = "sale_deleted"
	EventDeliveryStarted   EventType = "delivery_started"
	EventYouAreNext        EventType = "you_are_next"
	EventDeliveryCompleted EventType = "delivery_completed"
	EventDeliverySkipped   EventType = "delivery_skipped"
)

// Event is one outbound notification task. CustomerIDs are the recipients;
// the remaining fields feed the message payload depending on Type.
type Event struct {
	Type        EventType
	SaleID      int
	SaleDate    string
	CustomerIDs []int

	AmountCollected decimal.Decimal
	CreditApplied   decimal.Decimal
	Reason          string
}

// Message is the built push payload submitted to the gateway per device.
type Message struct {
	Title string
	Body  string
	Data  map[string]string
	Type  EventType
}

// buildMessage translates an event into its user-facing message.
func buildMessage(ev Event) Message {
	data := map[string]string{
		"sale_id": strconv.Itoa(ev.SaleID),
		"type":    string(ev.Type),
	}

	switch ev.Type {
	case EventSaleOpen:
		data["sale_date"] = ev.SaleDate
		return Message{
			Title: "New Sale Available!",
			Body:  fmt.Sprintf("A new sale for %s is now open. Place your order!", ev.SaleDate),
			Data:  data,
			Type:  ev.Type,
		}
	case EventSaleClosed:
		return Message{
			Title: "Orders Closed",
			Body:  "Order cutoff reached. Your order will be delivered soon!",
			Data:  data,
			Type:  ev.Type,
		}
	case EventSaleDeleted:
		data["sale_date"] = ev.SaleDate
		return Message{
			Title: "Sale Cancelled",
			Body:  fmt.Sprintf("The sale for %s has been cancelled.", ev.SaleDate),
			Data:  data,
			Type:  ev.Type,
		}
	case EventDeliveryStarted:
		return Message{
			Title: "Delivery Started!",
			Body:  "Your delivery is on its way! Track your position in the app.",
			Data:  data,
			Type:  ev.Type,
		}
	case EventYouAreNext:
		return Message{
			Title: "You're Next!",
			Body:  "The driver is heading to you next. Please be ready!",
			Data:  data,
			Type:  ev.Type,
		}
	case EventDeliveryCompleted:
		body := "Your delivery has been completed!"
		if ev.CreditApplied.IsPositive() {
			body = fmt.Sprintf("Delivery completed! Credit applied: $%s", ev.CreditApplied.StringFixed(2))
		}
		data["amount_collected"] = ev.AmountCollected.String()
		data["credit_applied"] = ev.CreditApplied.String()
		return Message{
			Title: "Delivery Complete!",
			Body:  body,
			Data:  data,
			Type:  ev.Type,
		}
	case EventDeliverySkipped:
		body := "Your delivery was skipped."
		if ev.Reason != "" {
			body = fmt.Sprintf("Your delivery was skipped: %s", ev.Reason)
		}
		data["reason"] = ev.Reason
		return Message{
			Title: "Delivery Skipped",
			Body:  body,
			Data:  data,
			Type:  ev.Type,
		}
	}

	return Message{Title: "Notification", Data: data, Type: ev.Type}
}
