package main

import "github.com/repik/lavanderia/internal/cli"

func main() {
	cli.Execute()
}
