package main

import "github.com/frahmantamala/chatmate/cmd"

func main() {
	cmd.Execute()
}
