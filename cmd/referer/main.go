package main

import "github.com/JakeFAU/referer-classifier/cmd"

func main() {
	cmd.Execute()
}
