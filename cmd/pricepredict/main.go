// Command pricepredict trains and serves house price regression models.
package main

import (
	"os"
)

func main() {
	if err := newCLI().root().Execute(); err != nil {
		os.Exit(1)
	}
}
