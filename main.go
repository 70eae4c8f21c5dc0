package main

import "github.com/mj1618/guide-cli/cmd"

func main() {
	cmd.Execute()
}
