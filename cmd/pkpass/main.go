package main

import "github.com/oshokin/passkit/cmd/pkpass/cmd"

func main() {
	cmd.Execute()
}
