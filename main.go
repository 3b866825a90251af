package main

import "github.com/storyloom/storyloom/cmd"

func main() {
	cmd.Execute()
}
