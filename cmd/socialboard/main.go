// Command socialboard serves the social board: a feed of posts and a
// per-user task board whose client state lives in a flux store and is
// exposed over HTTP.
//
//	socialboard serve --config socialboard.toml
//	socialboard state --json
package main

import (
	"fmt"
	"os"
)

func main() {
	Execute()
}

func fatal(msg string, err error) {
	fmt.Fprintf(os.Stderr, "%s: %v\n", msg, err)
	os.Exit(1)
}
