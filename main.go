package main

import "github.com/juststeveking/readycheck/cmd"

func main() {
	cmd.Execute()
}
