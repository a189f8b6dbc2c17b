package main

import (
	"context"

	"jaillog-backend/cmd/jaillog/commands"
	"jaillog-backend/lib/serviceutil"
)

func main() {
	ctx, cancel := serviceutil.SignalContext(context.Background())
	defer cancel()
	commands.ExecuteContext(ctx)
}
