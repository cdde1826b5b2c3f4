package main

import "github.com/papapumpkin/constellation/cmd"

func main() {
	cmd.Execute()
}
