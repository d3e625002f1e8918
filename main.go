package main

import "github.com/Alijeyrad/ambulanz_backend/cmd"

func main() {
	cmd.Execute()
}
