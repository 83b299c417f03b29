package main

import "concertlog/api/cmd/api/cmd"

func main() {
	cmd.Execute()
}
