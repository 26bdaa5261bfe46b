package main

import (
	"github.com/joho/godotenv"

	"github.com/ovaphlow/pitchfork/service-dashboard-go/internal/cli"
)

func main() {
	_ = godotenv.Load()
	cli.Execute()
}
