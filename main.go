package main

import "github.com/LavenderBridge/recall/cmd"

func main() {
	cmd.Execute()
}
