package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dpbroker/dpb/pkg/settings"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "view or change persisted dpbctl defaults",
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "print the current persisted settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := settings.Load()
		if err != nil {
			return err
		}
		fmt.Printf("default-network: %s\n", s.DefaultNetwork)
		fmt.Printf("ssh-addr:        %s\n", s.GetSSHAddr())
		fmt.Printf("broker-addr:     %s\n", s.GetBrokerAddr())
		fmt.Printf("config-dir:      %s\n", s.GetConfigDir())
		fmt.Printf("user:            %s\n", s.User)
		return nil
	},
}

var (
	setNetwork string
	setSSHAddr string
	setUser    string
)

var settingsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "update persisted settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := settings.Load()
		if err != nil {
			return err
		}
		if setNetwork != "" {
			s.DefaultNetwork = setNetwork
		}
		if setSSHAddr != "" {
			s.SSHAddr = setSSHAddr
		}
		if setUser != "" {
			s.User = setUser
		}
		return s.Save()
	},
}

var settingsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "reset all persisted settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		s := &settings.Settings{}
		return s.Save()
	},
}

func init() {
	settingsSetCmd.Flags().StringVar(&setNetwork, "network", "", "default network")
	settingsSetCmd.Flags().StringVar(&setSSHAddr, "addr", "", "default management/control address")
	settingsSetCmd.Flags().StringVar(&setUser, "user", "", "default username")
	settingsCmd.AddCommand(settingsShowCmd, settingsSetCmd, settingsClearCmd)
}
