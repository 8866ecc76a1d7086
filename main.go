package main

import "passguard/internal/app"

func main() {
	app.Run()
}
