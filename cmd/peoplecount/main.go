package main

import "github.com/MeKo-Tech/peoplecount/cmd/peoplecount/cmd"

func main() {
	cmd.Execute()
}
