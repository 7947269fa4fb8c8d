package main

import "syncstore/cmd"

func main() {
	cmd.Execute()
}
