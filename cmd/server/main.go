// Package main implements the entry point for the reinvent-insight server,
// which turns long-form conference talk transcripts and documents into
// structured multi-chapter reports using LLM providers.
package main

import (
	"log"
)

// main is the entry point for the reinvent-insight server.
// It initializes configuration, sets up logging, wires the provider clients
// and the task orchestration layer, and runs the HTTP server until a
// shutdown signal arrives.
func main() {
	app, err := initializeApp()
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	if err := app.run(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
