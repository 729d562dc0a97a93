package main

import "imagepick/cmd"

func main() {
	cmd.Execute()
}
