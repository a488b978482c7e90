package main

import "github.com/studymatch/backend/cmd"

func main() {
	cmd.Execute()
}
