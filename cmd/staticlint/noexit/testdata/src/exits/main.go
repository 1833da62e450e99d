package main

import (
	"log"
	"os"
	exit "os"
)

func main() {
	defer cleanup()

	if len(os.Args) > 3 {
		os.Exit(2) // want "avoid calling os.Exit in main.main"
	}
	if len(os.Args) > 2 {
		exit.Exit(3) // want "avoid calling os.Exit in main.main"
	}
	if len(os.Args) > 1 {
		log.Fatalf("unexpected arguments: %v", os.Args) // want "avoid calling log.Fatalf in main.main"
	}

	onError := func() {
		os.Exit(1)
	}
	_ = onError

	log.Println("done")
}

func cleanup() {}

func fail() {
	os.Exit(1)
}
