// Package notify delivers outbound messages over WhatsApp and e-mail.
package notify

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const (
	ChannelWhatsApp = "whatsapp"
	ChannelEmail    = "email"
)

// Message is a channel-agnostic outbound message. To is a phone number for
// WhatsApp and an address for e-mail.
type Message struct {
	To      string
	ToName  string
	Subject string
	Body    string
}

// Sender delivers a message on one channel.
type Sender interface {
	Channel() string
	Send(ctx context.Context, msg Message) error
}

// BookingConfirmation renders the WhatsApp text sent after a booking.
func BookingConfirmation(clientName, trainerName string, at time.Time) string {
	var b strings.Builder
	b.WriteString("💪 Gym Appointment Confirmed!\n")
	fmt.Fprintf(&b, "Hello %s,\n", clientName)
	fmt.Fprintf(&b, "You are booked with %s.\n", trainerName)
	fmt.Fprintf(&b, "📅 Date: %s\n", at.Format("2006-01-02"))
	fmt.Fprintf(&b, "⏰ Time: %s\n", at.Format("15:04"))
	b.WriteString("See you there!")
	return b.String()
}
