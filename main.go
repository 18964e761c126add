package main

import "github.com/fitstack/ms-go-account/cmd"

func main() {
	cmd.Execute()
}
