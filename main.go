package main

import "github.com/fanworks/storygraph/cmd"

func main() {
	cmd.Execute()
}
