package main

import "navira/internal/app"

func main() {
	app.Main()
}
