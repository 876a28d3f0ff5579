// Command api serves the Shule HTTP API.
package main

func main() {
	startWithDig()
}
