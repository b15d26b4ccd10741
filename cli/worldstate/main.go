package main

import (
	"os"

	worldstatecmder "github.com/papercomputeco/worldstate/cmd/worldstate"
)

func main() {
	cmd := worldstatecmder.NewWorldStateCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
