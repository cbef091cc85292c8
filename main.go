package main

import "github.com/photark/photark/cmd"

func main() {
	cmd.Execute()
}
