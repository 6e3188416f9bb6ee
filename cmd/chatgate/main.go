package main

import "github.com/averho/chatgate/internal/cli"

func main() {
	cli.Execute()
}
