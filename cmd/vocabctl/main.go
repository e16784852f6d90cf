// Command vocabctl is the command line entry point for the vocabulary quiz
package main

func main() {
	Execute()
}
