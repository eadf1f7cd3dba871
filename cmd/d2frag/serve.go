package main

import (
	"github.com/spf13/cobra"

	"github.com/veschin/d2-web-extension-sub000/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the language server over stdio",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		log.Info("starting d2frag language server")
		srv, err := server.NewServer(nil, Version)
		if err != nil {
			return err
		}
		return srv.RunStdio()
	},
}
