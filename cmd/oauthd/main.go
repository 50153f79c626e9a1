package main

import (
	"fmt"
	"log"
	"os"

	"github.com/aussiebroadwan/oauthkit/internal/oauthd/app"
)

func main() {
	cfg := app.LoadConfig()

	application, err := app.New(cfg)
	if err != nil {
		log.Fatalf("failed to initialize application: %v", err)
	}

	// Generated secrets are shown once and never logged.
	for _, c := range application.SeededClients() {
		if c.Secret != "" {
			fmt.Fprintf(os.Stderr, "seeded client %s secret: %s\n", c.ID, c.Secret)
		}
	}

	if err := application.Run(); err != nil {
		log.Fatalf("application error: %v", err)
	}
}
