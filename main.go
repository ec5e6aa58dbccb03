package main

import "training-enrollment/cmd"

func main() {
	cmd.Execute()
}
