package main

import (
	"os"

	"github.com/ruralpay/backoffice/internal/commands"
)

// @title Back Office API
// @version 1.0
// @description Ledger, lending and reporting API for the bank back office
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	if err := commands.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
