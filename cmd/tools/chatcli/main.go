// chatcli sends one message through the streaming chat pipeline and prints
// the reply as it arrives, then the settled transcript summary.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/atelierhq/atelier/backend/pkg/client"
)

func main() {
	baseURL := flag.String("base", "http://localhost:8080", "backend base URL")
	sessionID := flag.String("session", "", "session id (generated when empty)")
	message := flag.String("message", "", "user message to send")
	model := flag.String("model", "", "model id override")
	timeout := flag.Duration("timeout", 2*time.Minute, "request timeout")
	flag.Parse()

	if *message == "" {
		flag.Usage()
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	id := *sessionID
	if id == "" {
		id = uuid.NewString()
	}

	c := client.New(*baseURL, id, nil)

	if _, err := c.CreateSession(ctx, "", id, *message); err != nil {
		log.Fatalf("create session: %v", err)
	}

	state, err := c.SendMessage(ctx, *message, *model, func(chunk string) {
		fmt.Print(chunk)
	})
	if err != nil {
		log.Fatalf("send message: %v", err)
	}
	fmt.Println()

	fmt.Printf("--- session %s: %d message(s), processing=%v\n",
		id, len(state.Messages), state.IsProcessing)
	for _, msg := range state.Messages {
		for _, call := range msg.ToolCalls {
			fmt.Printf("    tool %s invoked (call %s)\n", call.Name, call.ID)
		}
	}
}
