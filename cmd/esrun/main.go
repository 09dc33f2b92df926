package main

import (
	"fmt"
	"os"

	"github.com/nmxmxh/esengine"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("usage: esrun <script.js>")
		os.Exit(1)
	}

	src, err := os.ReadFile(os.Args[1])
	if err != nil {
		fmt.Println("failed to read script:", err)
		os.Exit(1)
	}

	ctx, err := esengine.New(esengine.DefaultConfig())
	if err != nil {
		fmt.Println("failed to create context:", err)
		os.Exit(1)
	}

	result, err := ctx.Eval(string(src))
	if err != nil {
		fmt.Println("uncaught exception:", err)
		os.Exit(1)
	}

	if err := ctx.RunJobs(); err != nil {
		fmt.Println("uncaught exception in job queue:", err)
		os.Exit(1)
	}

	fmt.Println(result.ToStringValue().GoString())
}
