package main

import "runtime"

// toolVersion is written into TraceEvent metadata and Signature.Meta.ToolVersion.
const toolVersion = "0.1.0"

func platformString() string {
	return runtime.GOOS + "/" + runtime.GOARCH
}
