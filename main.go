// Package main is the entry point for the repopulse CLI.
package main

import (
	"github.com/huangsam/repopulse/cmd"
	"github.com/huangsam/repopulse/internal/contract"
	"github.com/huangsam/repopulse/internal/iocache"
)

func main() {
	cmd.SetCacheManager(iocache.Manager)
	defer iocache.CloseStores()

	err := cmd.Execute()
	if perr := cmd.StopProfiling(); perr != nil {
		contract.LogWarn("Failed to stop profiling", perr)
	}
	if err != nil {
		iocache.CloseStores()
		contract.LogFatal("Error", err)
	}
}
