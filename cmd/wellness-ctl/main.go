package main

import "github.com/oshokin/wellness-node/cmd/wellness-ctl/cmd"

func main() {
	cmd.Execute()
}
