package main

import (
	"log"

	"github.com/SergeiSkv/FixProof/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
