package main

import (
	"log"

	"github.com/SveltyCMS/SveltyCMS-sub004/internal/application/startup"
)

func main() {
	if err := startup.Initialize(); err != nil {
		log.Fatalf("Application startup failed: %v", err)
	}

	log.Println("Application has shut down gracefully.")
}
