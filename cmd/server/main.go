package main

import (
	"context"
	"log"

	"github.com/sundayezeilo/linkgate/internal/app"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	ctx := context.Background()

	// Initialize application
	application, err := app.New(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := application.Shutdown(); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}()

	// Start server (blocks until shutdown)
	return application.Start(ctx)
}
