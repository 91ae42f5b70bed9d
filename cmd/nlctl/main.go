// Main package nlctl implements a command line tool for resolving and
// listing Generic Netlink families through the nlctrl controller family.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/m-lab/go/flagx"
	"github.com/m-lab/go/prometheusx"
	"github.com/m-lab/go/rtx"

	"github.com/gluxon/nldl/genl"
	"github.com/gluxon/nldl/nlctrl"
	"github.com/gluxon/nldl/nlsock"
)

func init() {
	// Always prepend the filename and line number.
	log.SetFlags(log.LstdFlags | log.Lshortfile)
}

var (
	family   = flag.String("family", "", "Resolve a single family by name instead of listing all registered families.")
	asCSV    = flag.Bool("csv", false, "Write output as CSV instead of one family per line.")
	promPort = flag.String("prom", ":9090", "Prometheus metrics export address and port. Default is ':9090'")
)

func run(sock *nlsock.Socket, w *os.File) error {
	if *family != "" {
		f, err := nlctrl.GetFamily(sock, *family)
		if err != nil {
			return err
		}
		if *asCSV {
			return nlctrl.WriteCSV([]nlctrl.Family{f}, w)
		}
		fmt.Fprintf(w, "%d\t%s\tversion=%d\n", f.FamilyID, f.FamilyName, f.Version)
		return nil
	}

	families, err := nlctrl.List(sock)
	if err != nil {
		return err
	}
	if *asCSV {
		return nlctrl.WriteCSV(families, w)
	}
	for _, f := range families {
		fmt.Fprintf(w, "%d\t%s\tversion=%d\n", f.FamilyID, f.FamilyName, f.Version)
	}
	return nil
}

func main() {
	flag.Parse()
	flagx.ArgsFromEnv(flag.CommandLine)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	promSrv := prometheusx.MustStartPrometheus(*promPort)
	defer promSrv.Shutdown(ctx)

	sock, err := nlsock.Connect(genl.CtrlFamilyID)
	rtx.Must(err, "Could not open a Generic Netlink controller socket")
	defer sock.Close()

	rtx.Must(run(sock, os.Stdout), "Could not resolve family information")
}
