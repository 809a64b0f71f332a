package main

import "github.com/oshokin/wellness-node/cmd/wellness-node/cmd"

func main() {
	cmd.Execute()
}
