package main

import "github.com/pders01/savepoint/cmd"

func main() {
	cmd.Execute()
}
