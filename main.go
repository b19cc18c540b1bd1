package main

import "github.com/StinkyLord/cmake-sbom-builder/cmd"

func main() {
	cmd.Execute()
}
