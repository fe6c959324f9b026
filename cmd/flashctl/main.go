// Command flashctl manages stores on NOR flash chips and chip image files.
package main

func main() {
	execute()
}
