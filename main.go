package main

import "rfkeeper/cmd"

func main() {
	cmd.Execute()
}
