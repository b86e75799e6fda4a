// The wsplayctl command provides a command-line interface for inspecting
// and controlling signage player screens.
package main

import "github.com/wrale/wsplay/internal/wsplayctl/cmd"

func main() {
	cmd.Execute()
}
