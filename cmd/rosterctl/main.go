// Command rosterctl works on roster snapshot files offline: it renders the grid,
// lists rule violations, runs automated planning and exports the result.
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
