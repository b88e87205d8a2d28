package main

import "hackernews/cmd"

func main() {
	cmd.Execute()
}
