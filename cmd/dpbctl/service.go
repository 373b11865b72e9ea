package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dpbroker/dpb/pkg/protocol"
)

// circuitFlag accumulates "-e terminal:in:out" endpoint specs for new.
type circuitFlag struct {
	terminal string
	in, out  float64
}

func parseCircuitFlag(raw string) (circuitFlag, error) {
	parts := strings.Split(raw, ":")
	if len(parts) != 3 {
		return circuitFlag{}, fmt.Errorf("circuit spec %q must be terminal:in:out", raw)
	}
	in, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return circuitFlag{}, fmt.Errorf("circuit spec %q: invalid in rate: %w", raw, err)
	}
	out, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return circuitFlag{}, fmt.Errorf("circuit spec %q: invalid out rate: %w", raw, err)
	}
	return circuitFlag{terminal: parts[0], in: in, out: out}, nil
}

var newCircuits []string

var newCmd = &cobra.Command{
	Use:   "new",
	Short: "start a new service and add its circuits",
	Long:  "new builds the pending circuit set from -e terminal:in:out flags, then call initiate to plan and define the service.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := app.client.Send("new-service", nil); err != nil {
			return err
		}
		for _, raw := range newCircuits {
			c, err := parseCircuitFlag(raw)
			if err != nil {
				return err
			}
			if _, err := app.client.Send("add-circuit", map[string]interface{}{"terminal": c.terminal}); err != nil {
				return err
			}
			if _, err := app.client.Send("set-flow", map[string]interface{}{"in": c.in, "out": c.out}); err != nil {
				return err
			}
		}
		fmt.Println("ok")
		return nil
	},
}

func init() {
	newCmd.Flags().StringArrayVarP(&newCircuits, "endpoint", "e", nil, "circuit endpoint as terminal:in:out (repeatable)")
}

var initiateCmd = &cobra.Command{
	Use:   "initiate",
	Short: "plan and define a service from the pending circuit set",
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := app.client.Send("initiate", nil)
		if err != nil {
			return err
		}
		printResult(resp)
		return nil
	},
}

var activateCmd = &cobra.Command{
	Use:   "activate",
	Short: "activate the selected service",
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := app.client.Send("activate", nil)
		if err != nil {
			return err
		}
		printResult(resp)
		return nil
	},
}

var deactivateCmd = &cobra.Command{
	Use:   "deactivate",
	Short: "deactivate the selected service",
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := app.client.Send("deactivate", nil)
		if err != nil {
			return err
		}
		printResult(resp)
		return nil
	},
}

var releaseCmd = &cobra.Command{
	Use:   "release",
	Short: "release the selected service",
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := app.client.Send("release", nil)
		if err != nil {
			return err
		}
		printResult(resp)
		return nil
	},
}

var waitStates []string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "stream status events for the selected service until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		return app.client.Watch(app.serviceID, func(msg protocol.Message) bool {
			state, _ := msg["state"].(string)
			fmt.Printf("state: %s\n", state)
			for _, want := range waitStates {
				if want == state {
					return false
				}
			}
			return true
		})
	},
}

func init() {
	watchCmd.Flags().StringArrayVar(&waitStates, "until", nil, "stop watching once one of these states is seen")
}
