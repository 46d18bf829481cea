package main

import "github.com/oshokin/config-updater/cmd/config-updater/cmd"

func main() {
	cmd.Execute()
}
