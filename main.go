package main

import "github.com/marcmoiagese/ArbreGedcom/cli"

func main() {
	cli.Execute()
}
