// App-server executable for codex-temporal-go.
//
// Terminates a JSON-RPC 2.0 channel — stdio by default, or WebSocket with
// --listen — and routes requests to the Temporal-backed conversation
// manager and turn orchestrator via internal/rpc.
package main

import (
	"flag"
	"log"
	"net/http"
	"os"
	"path/filepath"

	"go.temporal.io/sdk/client"

	"github.com/mfateev/codex-temporal-go/internal/config"
	"github.com/mfateev/codex-temporal-go/internal/rpc"
)

func main() {
	listen := flag.String("listen", "", "WebSocket listen address (e.g. :8080); empty runs the stdio transport")
	codexHome := flag.String("codex-home", defaultCodexHome(), "CODEX_HOME directory for config.toml and rollout files")
	flag.Parse()

	if err := os.MkdirAll(*codexHome, 0o755); err != nil {
		log.Fatalf("appserver: create CODEX_HOME %s: %v", *codexHome, err)
	}

	if status, err := config.MigratePersonality(*codexHome); err != nil {
		log.Printf("appserver: personality migration failed: %v", err)
	} else {
		log.Printf("appserver: personality migration status: %d", status)
	}

	c, err := client.Dial(client.Options{HostPort: client.DefaultHostPort})
	if err != nil {
		log.Fatalf("appserver: failed to create Temporal client: %v", err)
	}
	defer c.Close()

	bridge := rpc.NewTemporalBridge(c)

	if *listen == "" {
		log.Printf("appserver: serving stdio JSON-RPC session, CODEX_HOME=%s", *codexHome)
		if err := rpc.ServeStdio(os.Stdin, os.Stdout, bridge, *codexHome); err != nil {
			log.Fatalf("appserver: stdio session ended with error: %v", err)
		}
		return
	}

	log.Printf("appserver: listening for WebSocket JSON-RPC sessions on %s, CODEX_HOME=%s", *listen, *codexHome)
	mux := http.NewServeMux()
	mux.Handle("/", rpc.WebSocketHandler(bridge, *codexHome))
	if err := http.ListenAndServe(*listen, mux); err != nil {
		log.Fatalf("appserver: http server failed: %v", err)
	}
}

func defaultCodexHome() string {
	if home := os.Getenv("CODEX_HOME"); home != "" {
		return home
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".codex")
	}
	return ".codex"
}
