package main

import (
	"log/slog"
	"os"
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

func main() {
	// A missing .env is fine; the environment may be set by other means.
	_ = godotenv.Load()

	if err := newApp().Run(os.Args); err != nil {
		slog.Error("jvc failed", "error", err)
		os.Exit(1)
	}
}
