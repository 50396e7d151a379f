package main

import "diary-sync/cmd"

func main() {
	cmd.Execute()
}
