package main

import "github.com/KaramelBytes/evdash-cli/cmd"

func main() {
	cmd.Execute()
}
