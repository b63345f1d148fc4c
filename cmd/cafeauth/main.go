// File: cmd/cafeauth/main.go
package main

import (
	"os"

	"cafe_client/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Stderr.WriteString("Error: " + err.Error() + "\n")
		os.Exit(1)
	}
}
