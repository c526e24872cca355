package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/valura/notification/cmd/cli/commands"
)

func main() {
	// A missing .env is fine, the environment and flags still apply
	_ = godotenv.Load()

	if err := commands.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
