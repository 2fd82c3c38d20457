// Command event-producer publishes synthetic platform activity events to
// Kafka for load testing the leaderboard refresher.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/IBM/sarama"
)

// ActivityEvent mirrors the message format consumed by the leaderboard
type ActivityEvent struct {
	EventType     string    `json:"event_type"`
	OrderID       string    `json:"order_id,omitempty"`
	ProviderID    string    `json:"provider_id,omitempty"`
	SellerID      string    `json:"seller_id,omitempty"`
	AgentID       string    `json:"agent_id,omitempty"`
	ParticipantID string    `json:"participant_id,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

func providerID(idx int) string { return fmt.Sprintf("provider-%03d", idx+1) }
func sellerID(idx int) string   { return fmt.Sprintf("seller-%03d", idx+1) }
func agentID(idx int) string    { return fmt.Sprintf("agent-%03d", idx+1) }

// randomEvent builds one plausible activity event
func randomEvent(providers, sellers, agents int) ActivityEvent {
	now := time.Now().UTC()
	switch rand.Intn(10) {
	case 0, 1, 2, 3, 4:
		return ActivityEvent{
			EventType:  "order_status_changed",
			OrderID:    fmt.Sprintf("order-%d", rand.Intn(1_000_000)),
			ProviderID: providerID(rand.Intn(providers)),
			SellerID:   sellerID(rand.Intn(sellers)),
			AgentID:    agentID(rand.Intn(agents)),
			OccurredAt: now,
		}
	case 5, 6, 7:
		return ActivityEvent{
			EventType:  "call_attempt_logged",
			OrderID:    fmt.Sprintf("order-%d", rand.Intn(1_000_000)),
			AgentID:    agentID(rand.Intn(agents)),
			OccurredAt: now,
		}
	case 8:
		return ActivityEvent{
			EventType:     "provider_rated",
			ParticipantID: providerID(rand.Intn(providers)),
			OccurredAt:    now,
		}
	default:
		return ActivityEvent{
			EventType:     "agent_rating_changed",
			ParticipantID: agentID(rand.Intn(agents)),
			OccurredAt:    now,
		}
	}
}

func main() {
	brokers := flag.String("brokers", "localhost:9094", "Kafka brokers (comma-separated)")
	topic := flag.String("topic", "platform-activity", "Kafka topic")
	providers := flag.Int("providers", 50, "Number of providers")
	sellers := flag.Int("sellers", 80, "Number of sellers")
	agents := flag.Int("agents", 30, "Number of call center agents")
	eventsPerSecond := flag.Int("rate", 50, "Events per second")
	duration := flag.Duration("duration", 0, "Duration to run (0 = forever)")
	flag.Parse()

	brokerList := strings.Split(*brokers, ",")

	fmt.Printf("Activity event producer: brokers=%s topic=%s rate=%d/sec\n", *brokers, *topic, *eventsPerSecond)

	// Configure Sarama producer
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForLocal
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.Flush.Frequency = 100 * time.Millisecond
	config.Producer.Flush.Messages = 100
	config.Producer.Return.Successes = true
	config.Producer.Return.Errors = true

	producer, err := sarama.NewAsyncProducer(brokerList, config)
	if err != nil {
		log.Fatalf("Failed to create producer: %v", err)
	}
	defer producer.Close()

	var successCount, errorCount int64
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for range producer.Successes() {
			atomic.AddInt64(&successCount, 1)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for err := range producer.Errors() {
			atomic.AddInt64(&errorCount, 1)
			log.Printf("Producer error: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})

	sendEvent := func(event ActivityEvent) {
		data, err := json.Marshal(event)
		if err != nil {
			log.Printf("Failed to marshal event: %v", err)
			return
		}

		// Key by order so status transitions for one order stay in order
		key := event.OrderID
		if key == "" {
			key = event.ParticipantID
		}

		msg := &sarama.ProducerMessage{
			Topic: *topic,
			Key:   sarama.StringEncoder(key),
			Value: sarama.ByteEncoder(data),
		}

		select {
		case producer.Input() <- msg:
		case <-done:
			return
		}
	}

	shutdown := func(reason string) {
		fmt.Printf("\n%s\n", reason)
		close(done)
		producer.AsyncClose()
		wg.Wait()
		fmt.Printf("Completed. Sent: %d, Errors: %d\n", atomic.LoadInt64(&successCount), atomic.LoadInt64(&errorCount))
	}

	interval := time.Second / time.Duration(*eventsPerSecond)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	statsTicker := time.NewTicker(5 * time.Second)
	defer statsTicker.Stop()

	var endTime time.Time
	if *duration > 0 {
		endTime = time.Now().Add(*duration)
	}

	var eventCount int64

	fmt.Println("Press Ctrl+C to stop")

	for {
		select {
		case <-sigChan:
			shutdown("Shutting down...")
			return

		case <-ticker.C:
			if *duration > 0 && time.Now().After(endTime) {
				shutdown("Duration reached, shutting down...")
				return
			}

			sendEvent(randomEvent(*providers, *sellers, *agents))
			atomic.AddInt64(&eventCount, 1)

		case <-statsTicker.C:
			fmt.Printf("[%s] Events: %d | Sent: %d | Errors: %d\n",
				time.Now().Format("15:04:05"),
				atomic.LoadInt64(&eventCount),
				atomic.LoadInt64(&successCount),
				atomic.LoadInt64(&errorCount),
			)
		}
	}
}
