package main

import (
	"log"

	"github.com/rahul/seif/internal/observability"
)

func main() {
	// Route all log output through the terminal mutex so it never
	// interleaves with an open prompt.
	log.SetOutput(observability.NewTermWriter())
	Execute()
}
