package main

import (
	"restockwatch/cmd/restockwatch/commands"
	"restockwatch/lib/serviceutil"
)

func main() {
	commands.ExecuteContext(serviceutil.SignalContext())
}
