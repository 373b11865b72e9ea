package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

var addTerminalCmd = &cobra.Command{
	Use:   "add-terminal <name>",
	Short: "register a terminal on the selected network",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := app.client.Send("add-terminal", map[string]interface{}{"terminal": args[0]})
		return err
	},
}

var removeTerminalCmd = &cobra.Command{
	Use:   "remove-terminal <name>",
	Short: "remove a terminal from the selected network",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := app.client.Send("remove-terminal", map[string]interface{}{"terminal": args[0]})
		return err
	},
}

var addTrunkCmd = &cobra.Command{
	Use:   "add-trunk <name> <start-terminal> <end-terminal>",
	Short: "add a trunk connecting two terminals",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := app.client.Send("add-trunk", map[string]interface{}{
			"trunk":          args[0],
			"start-terminal": args[1],
			"end-terminal":   args[2],
		})
		return err
	},
}

var removeTrunkCmd = &cobra.Command{
	Use:   "remove-trunk <name>",
	Short: "remove a trunk",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := app.client.Send("remove-trunk", map[string]interface{}{"trunk": args[0]})
		return err
	},
}

var labelSide string

func labelRangeCmd(use, msgType, short string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			lo, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid lo %q: %w", args[1], err)
			}
			hi, err := strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("invalid hi %q: %w", args[2], err)
			}
			_, err = app.client.Send(msgType, map[string]interface{}{
				"trunk": args[0], "lo": lo, "hi": hi, "side": labelSide,
			})
			return err
		},
	}
	cmd.Flags().StringVar(&labelSide, "side", "start", "label range side: start or end")
	return cmd
}

var openLabelsCmd = labelRangeCmd("open <trunk> <lo> <hi>", "open-labels", "define a label range on a trunk")
var closeLabelsCmd = labelRangeCmd("close <trunk> <lo> <hi>", "close-labels", "revoke a label range on a trunk")

var provideCmd = &cobra.Command{
	Use:   "provide <trunk> <up> <down>",
	Short: "provide capacity on a trunk",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		up, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return err
		}
		down, err := strconv.ParseFloat(args[2], 64)
		if err != nil {
			return err
		}
		_, err = app.client.Send("provide", map[string]interface{}{"trunk": args[0], "up": up, "down": down})
		return err
	},
}

var withdrawCmd = &cobra.Command{
	Use:   "withdraw <trunk> <up> <down>",
	Short: "withdraw capacity from a trunk",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		up, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return err
		}
		down, err := strconv.ParseFloat(args[2], 64)
		if err != nil {
			return err
		}
		_, err = app.client.Send("withdraw", map[string]interface{}{"trunk": args[0], "up": up, "down": down})
		return err
	},
}

var setDelayCmd = &cobra.Command{
	Use:   "set-delay <trunk> <delay>",
	Short: "set a trunk's propagation delay (as a Go duration, e.g. 2ms)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := time.ParseDuration(args[1])
		if err != nil {
			return fmt.Errorf("invalid delay %q: %w", args[1], err)
		}
		_, err = app.client.Send("set-delay", map[string]interface{}{"trunk": args[0], "delay-ms": d.Milliseconds()})
		return err
	},
}

var commissionCmd = &cobra.Command{
	Use:   "commission <trunk>",
	Short: "commission a trunk",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := app.client.Send("commission", map[string]interface{}{"trunk": args[0]})
		return err
	},
}

var decommissionCmd = &cobra.Command{
	Use:   "decommission <trunk>",
	Short: "decommission a trunk",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := app.client.Send("decommission", map[string]interface{}{"trunk": args[0]})
		return err
	},
}

var authzNetwork string

var authzCmd = &cobra.Command{
	Use:   "authorize <control|mgmt>",
	Short: "request control or management authorization for this session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		msgType := "authz-control"
		if args[0] == "mgmt" {
			msgType = "authz-mgmt"
		} else if args[0] != "control" {
			return fmt.Errorf("unknown authorization tier %q", args[0])
		}
		_, err := app.client.Send(msgType, map[string]interface{}{"network-name": authzNetwork})
		return err
	},
}

func init() {
	authzCmd.Flags().StringVar(&authzNetwork, "network", "", "network to authorize against (defaults to the selected network)")
}

var dropPrivsCmd = &cobra.Command{
	Use:   "drop-privs",
	Short: "permanently drop this session's control authorization",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := app.client.Send("drop-privs", nil)
		return err
	},
}
