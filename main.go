package main

import "github.com/botarhythm/my-shopify-ga-app-sub001/cmd"

func main() {
	cmd.Execute()
}
