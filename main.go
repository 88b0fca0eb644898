package main

import "github.com/derickschaefer/marquee/cmd"

func main() {
	cmd.Execute()
}
