package main

import "semsearch/internal/cli"

func main() {
	cli.Execute()
}
