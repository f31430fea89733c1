package main

import "materiel-tracker/cmd"

func main() {
	cmd.Execute()
}
