// Command werss is the WeRSS client: a new-article monitor and a CLI over
// the backend REST API.
package main

import (
	"context"
	"os"

	"werss-client/internal/cli"
)

func main() {
	if err := cli.Execute(context.Background()); err != nil {
		os.Exit(1)
	}
}
