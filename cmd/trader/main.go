package main

import (
	"os"

	"github.com/EngrGocity/MysessionTradeBot/cmd/trader/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
