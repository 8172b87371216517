package main

import "github.com/remoteshelf/shelf/cmd/shelf/cmd"

func main() {
	cmd.Execute()
}
