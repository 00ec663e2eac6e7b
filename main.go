package main

import "github.com/kozaktomas/geoface/cmd"

func main() {
	cmd.Execute()
}
