package main

import (
	"github.com/spf13/cobra"

	dicenet "github.com/psychodicenamic/dicesim/internal/net"
)

var (
	hostArchetype string
	joinArchetype string
	playPort      string
	playAddr      string
)

// hostCmd starts a debate server
var hostCmd = &cobra.Command{
	Use:   "host",
	Short: "Start a debate server and play as Player 1",
	RunE: func(cmd *cobra.Command, args []string) error {
		srv := &dicenet.Server{
			Catalog:       catalog,
			Rules:         rules,
			Port:          playPort,
			HostArchetype: hostArchetype,
			Logger:        logger,
		}
		return srv.Run(cmd.Context())
	},
}

// joinCmd connects to a debate server
var joinCmd = &cobra.Command{
	Use:   "join",
	Short: "Connect to a debate server and play as Player 2",
	RunE: func(cmd *cobra.Command, args []string) error {
		return dicenet.Connect(cmd.Context(), playAddr, joinArchetype)
	},
}

func init() {
	hostCmd.Flags().StringVar(&hostArchetype, "archetype", "1", "Archetype name or catalog number")
	hostCmd.Flags().StringVarP(&playPort, "port", "p", "9000", "TCP port to listen on")
	joinCmd.Flags().StringVar(&joinArchetype, "archetype", "2", "Archetype name or catalog number")
	joinCmd.Flags().StringVar(&playAddr, "addr", "localhost:9000", "Server address to connect to")
}
