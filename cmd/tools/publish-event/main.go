// cmd/tools/publish-event/main.go
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"notification-dispatcher/internal/common/config"
	"notification-dispatcher/internal/common/queue"
	"notification-dispatcher/internal/ingestion"
)

func main() {
	routingKey := flag.String("key", "reservation.confirmed", "Routing key to publish with")
	file := flag.String("file", "", "Path to a JSON message body")
	body := flag.String("body", "", "Inline JSON message body")
	userID := flag.String("user", "", "User ID for a generated event (random when empty)")
	userEmail := flag.String("email", "", "Recipient email for a generated event")
	declare := flag.Bool("declare", true, "Declare the exchange, queue and bindings before publishing")
	flag.Parse()

	payload, err := messageBody(*file, *body, *routingKey, *userID, *userEmail)
	if err != nil {
		fmt.Printf("Error building message: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	conn, err := queue.DialAMQP(cfg.RabbitMQ.GetURL())
	if err != nil {
		fmt.Printf("Error connecting to RabbitMQ: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		fmt.Printf("Error opening channel: %v\n", err)
		os.Exit(1)
	}
	defer ch.Close()

	if *declare {
		topology := queue.Topology{
			Exchange:    cfg.RabbitMQ.Exchange,
			Queue:       cfg.RabbitMQ.Queue,
			RoutingKeys: ingestion.RoutingKeys(),
		}
		if err := topology.Declare(ch); err != nil {
			fmt.Printf("Error declaring topology: %v\n", err)
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := queue.NewPublisher(ch, cfg.RabbitMQ.Exchange).Publish(ctx, *routingKey, payload); err != nil {
		fmt.Printf("Error publishing: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Published to %s with key %s: %s\n", cfg.RabbitMQ.Exchange, *routingKey, string(payload))
}

// messageBody returns the explicit body when one is given, otherwise a
// sample event for the routing key.
func messageBody(file, inline, routingKey, userID, email string) (json.RawMessage, error) {
	var raw []byte
	switch {
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, err
		}
		raw = data
	case inline != "":
		raw = []byte(inline)
	default:
		if userID == "" {
			userID = uuid.NewString()
		}
		event := map[string]interface{}{
			"user_id":    userID,
			"event_type": ingestion.EventTypeForRoutingKey(routingKey),
			"data": map[string]interface{}{
				"parking_name": "Central Parking",
				"date":         time.Now().Format("2006-01-02"),
				"time":         time.Now().Add(time.Hour).Format("15:04"),
				"amount":       15.5,
			},
		}
		if email != "" {
			event["user_email"] = email
		}
		return json.Marshal(event)
	}

	if !json.Valid(raw) {
		return nil, fmt.Errorf("message body is not valid JSON")
	}
	return json.RawMessage(raw), nil
}
