package config

import (
	"log"
	"os"
)

// Logger configures the standard logger used across the service.
func Logger() {
	log.SetOutput(os.Stdout)
	log.SetFlags(log.LstdFlags | log.Lshortfile)
}
