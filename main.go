package main

import (
	"github.com/tanpawarit/table-reservation-agent/cmd"
	_ "github.com/tanpawarit/table-reservation-agent/pkg/logger/autoload"
)

func main() {
	cmd.Execute()
}
