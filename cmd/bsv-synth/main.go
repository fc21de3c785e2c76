// Command bsv-synth compiles Bluespec packages with bsc and loads the generated
// Verilog into a design, pulling in the library primitives it instantiates.
package main

func main() {
	Execute()
}
