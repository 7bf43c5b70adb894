package main

import "postqueue/cmd"

func main() {
	cmd.Run()
}
