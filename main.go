package main

import "github.com/KaramelBytes/ruler/cmd"

func main() {
	cmd.Execute()
}
