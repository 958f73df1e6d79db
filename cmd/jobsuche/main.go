// Command jobsuche queries the Bundesagentur für Arbeit job search service
// from the command line, or serves it as a small HTTP gateway.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
