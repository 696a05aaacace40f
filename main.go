package main

import "vmos/cmd"

func main() {
	cmd.Execute()
}
