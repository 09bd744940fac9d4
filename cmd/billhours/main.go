package main

import (
	"context"
	"fmt"
	"os"

	"github.com/andy/billhours/internal/app"
	"github.com/andy/billhours/internal/cli"
	"github.com/joho/godotenv"
)

// needsApp is false for invocations that only print help
func needsApp(args []string) bool {
	if len(args) == 0 {
		return false
	}
	for _, a := range args {
		switch a {
		case "-h", "--help", "help", "completion":
			return false
		}
	}
	return true
}

func main() {
	// .env is optional and never overrides the real environment
	_ = godotenv.Load()

	if needsApp(os.Args[1:]) {
		a, err := app.New(context.Background())
		if err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
		defer a.Close()
		cli.SetApp(a)
	}

	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
