// Command domsnap builds indexed DOM snapshots of web pages and acts on
// their elements by highlight index.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "domsnap:", err)
		os.Exit(1)
	}
}
