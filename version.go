package main

import (
	"fmt"
	"runtime"

	"github.com/supercache/supercache/internal/version"
)

// printVersion 输出注入的版本、提交信息以及编译所用的 Go 版本。
func printVersion() {
	fmt.Fprintf(stdOut, "%s %s\n", version.Full(), runtime.Version())
}
