package main

import (
	"log"

	"github.com/psds-microservice/support-engine/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
