package main

import "github.com/darmiel/localhub/cmd"

func main() {
	cmd.Execute()
}
