package main

import "github.com/frahmantamala/teamspace/cmd"

func main() {
	cmd.Execute()
}
