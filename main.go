package main

import "github.com/neonlabsorg/registrypublisher/cmd"

func main() {
	cmd.Execute()
}
