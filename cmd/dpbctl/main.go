// dpbctl is the operator CLI for a dpbd broker.
//
// Noun-group pattern, one stateful session per invocation mirroring the
// management/control protocol's own accumulator model:
//
//	dpbctl -n <network> new -e term1:2.0:1.0 -e term2:1.0:2.0 initiate
//	dpbctl -n <network> -s <id> activate
//	dpbctl -n <network> -s <id> watch
//	dpbctl -n <network> add-terminal eth0
//	dpbctl -n <network> add-trunk trunk0 eth0 eth1
//	dpbctl settings show
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dpbroker/dpb/pkg/protocol"
	"github.com/dpbroker/dpb/pkg/settings"
	"github.com/dpbroker/dpb/pkg/util"
	"github.com/dpbroker/dpb/pkg/version"
)

// App holds CLI state shared across all commands.
type App struct {
	network   string
	serviceID int64
	sshAddr   string
	user      string
	password  string
	verbose   bool
	jsonOut   bool

	settings *settings.Settings
	client   *protocol.Client
}

var app = &App{}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "dpbctl",
	Short:         "Control client for a dpbd broker",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if isSettingsOrHelp(cmd) {
			return nil
		}

		var err error
		app.settings, err = settings.Load()
		if err != nil {
			util.Logger.Warnf("could not load settings: %v", err)
			app.settings = &settings.Settings{}
		}

		if app.sshAddr == "" {
			app.sshAddr = app.settings.GetSSHAddr()
		}
		if app.network == "" {
			app.network = app.settings.DefaultNetwork
		}
		if app.user == "" {
			app.user = app.settings.User
		}

		if app.verbose {
			util.SetLogLevel("debug")
		} else {
			util.SetLogLevel("warn")
		}

		if needsClient(cmd) {
			client, err := protocol.Dial(app.sshAddr, app.user, app.password)
			if err != nil {
				return fmt.Errorf("connecting to %s: %w", app.sshAddr, err)
			}
			app.client = client
			if app.network != "" {
				if _, err := app.client.Send("network", map[string]interface{}{"network-name": app.network}); err != nil {
					return err
				}
			}
			if app.serviceID != 0 {
				if _, err := app.client.Send("service", map[string]interface{}{"service-id": app.serviceID}); err != nil {
					return err
				}
			}
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if app.client != nil {
			return app.client.Close()
		}
		return nil
	},
}

func isSettingsOrHelp(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Name() == "settings" || c.Name() == "version" || c.Name() == "help" {
			return true
		}
	}
	return false
}

func needsClient(cmd *cobra.Command) bool {
	return !isSettingsOrHelp(cmd)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&app.network, "network", "n", "", "network name")
	rootCmd.PersistentFlags().Int64VarP(&app.serviceID, "service", "s", 0, "service id")
	rootCmd.PersistentFlags().StringVar(&app.sshAddr, "addr", "", "broker management/control address (host:port)")
	rootCmd.PersistentFlags().StringVarP(&app.user, "user", "u", "", "management/control username")
	rootCmd.PersistentFlags().StringVar(&app.password, "password", "", "management/control password")
	rootCmd.PersistentFlags().BoolVarP(&app.verbose, "verbose", "v", false, "verbose logging")
	rootCmd.PersistentFlags().BoolVar(&app.jsonOut, "json", false, "emit raw JSON replies")

	rootCmd.AddCommand(
		newCmd,
		initiateCmd,
		activateCmd,
		deactivateCmd,
		releaseCmd,
		watchCmd,
		addTerminalCmd,
		removeTerminalCmd,
		addTrunkCmd,
		removeTrunkCmd,
		openLabelsCmd,
		closeLabelsCmd,
		provideCmd,
		withdrawCmd,
		setDelayCmd,
		commissionCmd,
		decommissionCmd,
		authzCmd,
		dropPrivsCmd,
		settingsCmd,
		versionCmd,
	)
}

func printResult(resp protocol.Message) {
	result, _ := resp["result"].(map[string]interface{})
	if result == nil {
		fmt.Println("ok")
		return
	}
	for k, v := range result {
		fmt.Printf("%s: %v\n", k, v)
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "print version and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println(version.Info())
		return nil
	},
}
