package realtime

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Channel carries every queue event between the API process and the display
// process.
const Channel = "mwolo.queue.events"

const (
	EventTicketCreated     = "ticket.created"
	EventTicketCalled      = "ticket.called"
	EventTicketRecalled    = "ticket.recalled"
	EventTicketCompleted   = "ticket.completed"
	EventTicketCancelled   = "ticket.cancelled"
	EventTicketTransferred = "ticket.transferred"
	EventTicketNoShow      = "ticket.no_show"
	EventCounterUpdated    = "counter.updated"
)

// Event is the wire format published on the Redis channel.
type Event struct {
	Type         string    `json:"type"`
	AgencyID     string    `json:"agency_id"`
	ServiceID    string    `json:"service_id,omitempty"`
	TicketID     string    `json:"ticket_id,omitempty"`
	TicketNumber string    `json:"ticket_number,omitempty"`
	CounterID    string    `json:"counter_id,omitempty"`
	CounterName  string    `json:"counter_name,omitempty"`
	At           time.Time `json:"at"`
}

// Publisher sends queue events to Redis. A nil Publisher is safe to call and
// publishes nothing, so handlers do not branch on configuration.
type Publisher struct {
	client *redis.Client
}

func NewPublisher(client *redis.Client) *Publisher {
	if client == nil {
		return nil
	}
	return &Publisher{client: client}
}

func (p *Publisher) Publish(ctx context.Context, event Event) {
	if p == nil {
		return
	}
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("queue event marshal: %v", err)
		return
	}
	if err := p.client.Publish(ctx, Channel, payload).Err(); err != nil {
		log.Printf("queue event publish: %v", err)
	}
}

// Subscribe consumes queue events from Redis and rebroadcasts them on the
// hub until ctx is cancelled.
func Subscribe(ctx context.Context, client *redis.Client, hub *Hub) {
	sub := client.Subscribe(ctx, Channel)
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-sub.Channel():
			if !ok {
				return
			}
			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				log.Printf("queue event decode: %v", err)
				continue
			}
			hub.Broadcast([]byte(msg.Payload), Subscription{
				AgencyID:  event.AgencyID,
				ServiceID: event.ServiceID,
			})
		}
	}
}
