// Package main implements the ompdart CLI tool.
//
// ompdart synthesizes OpenMP target-offload data-movement directives for
// annotated Go source: it reads a file carrying "//ompdart:target"
// pragma comments standing in for #pragma omp target directives, runs
// the interprocedural data-flow analysis over every variable touched
// from inside a kernel, and rewrites the file with the map/update/
// firstprivate clauses the analysis derived.
//
// Usage:
//
//	ompdart [flags] <file.go>
package main

import (
	"fmt"
	"os"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "version", "--version", "-v":
		fmt.Printf("ompdart version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		analyzeCommand(os.Args[1:])
	}
}

func printUsage() {
	fmt.Print(`ompdart - OpenMP target data-movement synthesizer

USAGE:
    ompdart [flags] <file.go>

FLAGS:
    -o, --output <path>            write the rewritten source to <path>
                                    (default: /tmp/<basename of input>)
    -a, --aggressive-cross-function
                                    leave the mapping of a parameter or
                                    global that a callee touches only
                                    inside kernels to the callee's callers
        --dump-log                 print the per-function access log to
                                    stderr instead of rewriting
    -h, --help                     show this help message

EXAMPLES:
    ompdart kernel.go
    ompdart -o kernel.out.go kernel.go
    ompdart --dump-log kernel.go

`)
}
