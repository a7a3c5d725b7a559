package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/joho/godotenv"
	"github.com/vendora/vendora-backend/internal/config"
	"github.com/vendora/vendora-backend/internal/database"
	"github.com/vendora/vendora-backend/internal/notifications"
	"github.com/vendora/vendora-backend/internal/queue"
)

type LocalStackEmail struct {
	ID          string    `json:"Id"`
	Timestamp   string    `json:"Timestamp"`
	Subject     string    `json:"Subject"`
	Body        EmailBody `json:"Body"`
	Destination Dest      `json:"Destination"`
}

type EmailBody struct {
	Text string `json:"text_part"`
	HTML string `json:"html_part"`
}

type Dest struct {
	ToAddresses []string `json:"ToAddresses"`
}

type LocalStackResponse struct {
	Messages []LocalStackEmail `json:"messages"`
}

var (
	enqueuePtr = flag.Bool("enqueue", false, "Render a sample order confirmation and enqueue it for the worker")
	viewPtr    = flag.Bool("view", false, "View the emails LocalStack has accepted")
	toPtr      = flag.String("to", "test@example.com", "Recipient of the sample email")
)

// Dev helper for the order email pipeline against LocalStack.
func main() {
	flag.Parse()
	_ = godotenv.Load()

	cfg := config.Load()

	if *enqueuePtr {
		q, err := queue.NewQueue(&cfg.Redis)
		if err != nil {
			log.Fatalf("Failed to connect to queue: %v", err)
		}
		defer q.Close()

		mailer, err := notifications.NewMailer(q)
		if err != nil {
			log.Fatalf("Failed to load templates: %v", err)
		}

		log.Printf("Enqueuing order confirmation to %s...", *toPtr)
		mailer.OrderConfirmation(notifications.OrderEmail{
			To:           *toPtr,
			CustomerName: "Sample Customer",
			OrderRef:     "sample01",
			Status:       database.OrderStatusPending,
			TotalCents:   2598,
			Currency:     cfg.Checkout.Currency,
			ExpiresAt:    time.Now().Add(cfg.Orders.PendingTTL),
			Items: []notifications.OrderEmailItem{
				{Name: "Enamel Mug", Quantity: 2, UnitPriceCents: 1299},
			},
		})
		return
	}

	if *viewPtr {
		viewEmails(cfg.AWS.EndpointURL)
		return
	}

	flag.Usage()
}

func viewEmails(endpoint string) {
	if endpoint == "" {
		endpoint = "http://localhost:4566"
	}
	log.Println("--- LocalStack SES Inbox ---")

	resp, err := http.Get(endpoint + "/_aws/ses")
	if err != nil {
		log.Printf("Failed to fetch LocalStack messages: %v", err)
		return
	}
	defer resp.Body.Close()

	bodyData, _ := io.ReadAll(resp.Body)
	var lsResp LocalStackResponse
	if err := json.Unmarshal(bodyData, &lsResp); err != nil {
		log.Printf("Failed to parse LocalStack response: %v\nRaw body: %s", err, string(bodyData))
		return
	}

	if len(lsResp.Messages) == 0 {
		fmt.Println("No messages found in LocalStack.")
		return
	}

	fmt.Printf("\nFound %d message(s):\n", len(lsResp.Messages))
	for i, msg := range lsResp.Messages {
		fmt.Printf("\n[%d] Time: %s\n", i+1, msg.Timestamp)
		fmt.Printf("To: %v\n", msg.Destination.ToAddresses)
		fmt.Printf("Subject: %s\n", msg.Subject)
		fmt.Printf("Body: %s\n", msg.Body.Text)
		fmt.Println("---------------------------------------------------")
	}
}
