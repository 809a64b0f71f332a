package main

import "github.com/oshokin/wellness-node/cmd/wellness-updater/cmd"

func main() {
	cmd.Execute()
}
