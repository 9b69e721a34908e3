// Command deliveryctl mints and checks delivery links offline, using the
// same signing secret as the service.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd(os.Getenv).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
