package main

import (
	"clubworx-backend/cmd/clubworx-cli/commands"
	"clubworx-backend/pkg/serviceutil"
)

func main() {
	commands.ExecuteContext(serviceutil.SignalContext())
}
