package main

import "github.com/MeKo-Tech/climatetex/internal/cmd"

func main() {
	cmd.Execute()
}
