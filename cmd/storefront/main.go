package main

import (
	"os"

	"github.com/fjod/go_cart/storefront-service/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
