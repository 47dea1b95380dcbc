package main

import "github.com/dialog-db/dialog/cli"

func main() {
	cli.Execute()
}
