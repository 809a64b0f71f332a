package main

import "github.com/oshokin/wellness-node/cmd/wellness-packager/cmd"

func main() {
	cmd.Execute()
}
