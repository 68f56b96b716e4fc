package main

import (
	"github.com/rigadev/pavadoc/cmd/pavadoc/cmd"
)

func main() {
	cmd.Execute()
}
