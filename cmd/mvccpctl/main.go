// Command mvccpctl runs an in-process multi-node MVCCP scenario over the
// in-memory lossy medium in internal/transport, for manual exploration and
// smoke-testing of the protocol core outside of a Ginkgo/testify suite.
package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/tebeka/atexit"
	"go.uber.org/automaxprocs/maxprocs"
)

func main() {
	// automaxprocs.Set matches GOMAXPROCS to the container's cgroup CPU
	// quota rather than the host's core count, the way a sim-scale akita
	// program run under Kubernetes would.
	if _, err := maxprocs.Set(maxprocs.Logger(log.Printf)); err != nil {
		log.Printf("mvccpctl: automaxprocs: %v", err)
	}

	// A .env file is optional; when present it is loaded into the process
	// environment. The scenario flags are not read from the environment.
	// Its absence is not an error.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("mvccpctl: .env: %v", err)
	}

	Execute()
	atexit.Exit(0)
}
