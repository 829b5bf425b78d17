package main

import "AIBoss/client/aiboss-cli/cmd"

func main() {
	cmd.Execute()
}
