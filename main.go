package main

import (
	"os"

	"price-scout/cli"
	"price-scout/utils"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		utils.Error("%v", err)
		os.Exit(1)
	}
}
