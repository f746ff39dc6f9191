package main

import "github.com/mnavarrete/customers-api/cmd"

func main() {
	cmd.Execute()
}
