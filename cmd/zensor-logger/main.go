package main

import "github.com/oshokin/zensor/cmd/zensor-logger/cmd"

func main() {
	cmd.Execute()
}
