package main

import "scale_backend/internal/app"

func main() {
	app.Run()
}
