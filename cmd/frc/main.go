package main

import (
	"github.com/ssargent/framerec/cmd/frc/cmd"
)

func main() {
	cmd.Execute()
}
