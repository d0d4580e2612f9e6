// Command capres resolves the capability requests described by scenario
// files and reports what it finds.
package main

import (
	"os"

	"github.com/NigeWarren/dotty/internal/cmd/capres"
)

func main() {
	os.Exit(capres.Run(os.Args[1:]))
}
