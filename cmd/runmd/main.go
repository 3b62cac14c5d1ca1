// Command runmd renders markdown files, running their javascript blocks and
// inlining the output.
package main

import (
	"os"

	"github.com/livetemplate/runmd/cmd/runmd/commands"
)

func main() {
	os.Exit(commands.Execute())
}
