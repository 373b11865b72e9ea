// dpbd is the broker daemon: it loads the configured networks, opens
// their persisted state, restores persisted terminals, and serves
// the management/control SSH protocol, the REST adapter, and the
// health/metrics endpoint.
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/crypto/ssh"

	"github.com/dpbroker/dpb/pkg/aggregator"
	"github.com/dpbroker/dpb/pkg/auth"
	"github.com/dpbroker/dpb/pkg/config"
	"github.com/dpbroker/dpb/pkg/health"
	"github.com/dpbroker/dpb/pkg/persistence"
	"github.com/dpbroker/dpb/pkg/protocol"
	"github.com/dpbroker/dpb/pkg/rest"
	"github.com/dpbroker/dpb/pkg/util"
	"github.com/dpbroker/dpb/pkg/version"
)

func main() {
	configPath := flag.String("config", "/etc/dpb/config.yaml", "path to the broker configuration file")
	dbPath := flag.String("db", "/var/lib/dpb/state.db", "path to the persisted-state SQLite database")
	sshAddr := flag.String("ssh-addr", ":2222", "management/control SSH listen address")
	httpAddr := flag.String("http-addr", ":8080", "REST adapter listen address")
	healthAddr := flag.String("health-addr", ":9090", "health/metrics listen address")
	logLevel := flag.String("log-level", "info", "log level (debug, info, warn, error)")
	logJSON := flag.Bool("log-json", false, "emit logs as JSON")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Info())
		return
	}

	if err := util.SetLogLevel(*logLevel); err != nil {
		util.Fatalf("invalid log level %q: %v", *logLevel, err)
	}
	if *logJSON {
		util.SetJSONFormat()
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		util.Fatalf("loading config: %v", err)
	}
	if err := cfg.Resolve(); err != nil {
		util.Fatalf("invalid config: %v", err)
	}

	store, err := persistence.Open(*dbPath)
	if err != nil {
		util.Fatalf("opening persistence store: %v", err)
	}
	defer store.Close()

	broker := aggregator.NewBroker()
	checkers := make(map[string]*auth.Checker)
	restServers := make(map[string]*rest.Server)

	for name, netCfg := range cfg.Networks {
		a := aggregator.New(name)
		if err := reconcileNetwork(store, netCfg, a); err != nil {
			util.Fatalf("reconciling network %s: %v", name, err)
		}
		broker.Add(a)
		checkers[name] = auth.NewChecker(netCfg)
		restServers[name] = rest.NewServer(a, checkers[name])
		util.WithAggregator(name).Info("network loaded")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hostKey, err := ssh.NewSignerFromKey(loadOrGenerateHostKey())
	if err != nil {
		util.Fatalf("preparing SSH host key: %v", err)
	}
	sshServer := protocol.NewServer(hostKey, protocol.Credentials{}, broker, checkers)
	sshLn, err := net.Listen("tcp", *sshAddr)
	if err != nil {
		util.Fatalf("listening on %s: %v", *sshAddr, err)
	}
	go func() {
		if err := sshServer.Serve(ctx, sshLn); err != nil {
			util.Errorf("ssh server stopped: %v", err)
		}
	}()
	util.WithField("addr", *sshAddr).Info("management/control SSH server listening")

	// One REST mux per configured network, each claiming its own path
	// prefix on the shared HTTP listener so a single process can still
	// serve every network without needing one port per network.
	mux := http.NewServeMux()
	for name, s := range restServers {
		mux.Handle("/"+name+"/", http.StripPrefix("/"+name, s.Handler()))
	}
	httpServer := &http.Server{Addr: *httpAddr, Handler: mux}
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			util.Errorf("rest server stopped: %v", err)
		}
	}()
	util.WithField("addr", *httpAddr).Info("REST adapter listening")

	checker := health.NewChecker(
		&health.ListenerCheck{CheckName: "ssh-listener", Addr: sshLn.Addr().String()},
		&health.SQLiteCheck{DB: store.DB()},
	)
	healthMux := http.NewServeMux()
	healthMux.HandleFunc("/healthz", checker.Handler())
	healthMux.Handle("/metrics", health.MetricsHandler())
	healthServer := &http.Server{Addr: *healthAddr, Handler: healthMux}
	go func() {
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			util.Errorf("health server stopped: %v", err)
		}
	}()
	util.WithField("addr", *healthAddr).Info("health/metrics listening")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	util.Info("shutting down")
	cancel()
	httpServer.Shutdown(context.Background())
	healthServer.Shutdown(context.Background())
}

// reconcileNetwork runs store.Reconcile for a's slice, which loads the
// persisted terminals and the intent=true services, and restores the
// terminals in memory. The retained services are not restored.
func reconcileNetwork(store *persistence.Store, netCfg *config.NetworkConfig, a *aggregator.Aggregator) error {
	reconciled, err := store.Reconcile(netCfg.DB.Slice)
	if err != nil {
		return err
	}
	for _, t := range reconciled.Terminals {
		if err := a.AddTerminal(t.ID, a.Name()); err != nil {
			return fmt.Errorf("restoring terminal %s: %w", t.ID, err)
		}
	}
	// The retained services and their endpoints are not re-defined or
	// re-activated here, so after a restart a's service table starts empty.
	_ = reconciled.Services
	return nil
}
