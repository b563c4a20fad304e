package main

import (
	"log"

	"tuition-server-go/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		log.Fatalf("tuition: %v", err)
	}
}
