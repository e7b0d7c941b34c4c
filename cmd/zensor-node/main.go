package main

import "github.com/oshokin/zensor/cmd/zensor-node/cmd"

func main() {
	cmd.Execute()
}
