package main

import "github.com/cardpass/pass-issuer/internal/cli"

func main() {
	cli.Execute()
}
