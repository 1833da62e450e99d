// The server binary serves the user list API, the real-time channel
// and the server-side rendered front end.
package main

import (
	"github.com/patric-chuzhbe/userlist/internal/app"
)

func main() {
	theApp, err := app.New()
	if err != nil {
		panic(err)
	}
	defer theApp.Close()

	if err := theApp.Run(); err != nil {
		panic(err)
	}
}
