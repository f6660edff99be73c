package main

import "github.com/Togather-Foundation/conflicts/cmd/server/cmd"

func main() {
	cmd.Execute()
}
