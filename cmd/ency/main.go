// Command ency is a terminal front end for the auth state core. It signs
// users up and in against the hosted identity provider (or the bundled
// emulator) and shows the resulting session.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, describeError(err))
		os.Exit(1)
	}
}
