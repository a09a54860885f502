// Command snacx exports the SNAC neural audio codec decoder to ONNX and
// works with the resulting files.
package main

func main() {
	Execute()
}
