// Command board runs one replica of the task board: either the node
// configured as Primary or the node configured as Backup, per spec.md §6.
//
// Usage:
//
//	board primary <port> <node_id> [<peer_ip> <peer_port>]
//	board backup  <port> <node_id> <primary_ip> <primary_port>
//
// The two-argument Primary form disables replication entirely.
package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/taskboard/replicore/internal/node"
	"github.com/taskboard/replicore/internal/osutil"
	"github.com/taskboard/replicore/internal/xlog"
)

var logger = xlog.NewLogger("main")

func init() {
	xlog.SetGlobalMaxLogLevel(xlog.INFO)
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	var n *node.Node
	var listenAddr string

	switch os.Args[1] {
	case "primary":
		n, listenAddr = parsePrimary(os.Args[2:])
	case "backup":
		n, listenAddr = parseBackup(os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}

	osutil.RegisterInterruptHandler(n.Stop)
	go osutil.WaitForInterruptSignals(osutil.SIGINT, osutil.SIGTERM, osutil.SIGQUIT)

	logger.Infof("node %d listening on %s", n.NodeID, listenAddr)
	if err := n.Run(listenAddr); err != nil {
		logger.Errorf("listen on %s failed: %v", listenAddr, err)
		os.Exit(1)
	}
	logger.Infof("node %d shut down cleanly", n.NodeID)
}

func parsePrimary(args []string) (*node.Node, string) {
	if len(args) != 2 && len(args) != 4 {
		usage()
		os.Exit(1)
	}

	port := mustAtoi(args[0])
	nodeID := mustAtoi(args[1])

	var peerAddr string
	if len(args) == 4 {
		peerAddr = fmt.Sprintf("%s:%s", args[2], args[3])
	}

	return node.NewPrimary(int32(nodeID), peerAddr), fmt.Sprintf(":%d", port)
}

func parseBackup(args []string) (*node.Node, string) {
	if len(args) != 4 {
		usage()
		os.Exit(1)
	}

	port := mustAtoi(args[0])
	nodeID := mustAtoi(args[1])
	primaryAddr := fmt.Sprintf("%s:%s", args[2], args[3])

	return node.NewBackup(int32(nodeID), primaryAddr), fmt.Sprintf(":%d", port)
}

func mustAtoi(s string) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		usage()
		os.Exit(1)
	}
	return v
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage:")
	fmt.Fprintln(os.Stderr, "  board primary <port> <node_id> [<peer_ip> <peer_port>]")
	fmt.Fprintln(os.Stderr, "  board backup  <port> <node_id> <primary_ip> <primary_port>")
}
