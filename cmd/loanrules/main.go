package main

import (
	"os"

	"github.com/circdesk/loanrules/cmd/loanrules/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
