// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import "github.com/spf13/cobra"

var (
	configPath string

	rootCmd = &cobra.Command{
		Use:   "harborcrm",
		Short: "HarborCRM: a tool-mediated CRM assistant for small agencies",
		Long: `HarborCRM runs an AI assistant whose only path to the CRM is a
fixed set of validated, authorized tools. The assistant can create
clients, convert leads, record billable services, and search records;
every attempted action lands in an audit log.`,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Start the HarborCRM API server",
		Run:   runServe, // Defined in serve.go
	}
)

func init() {
	serveCmd.Flags().StringVarP(&configPath, "config", "c", "",
		"Path to a YAML config file (optional, env vars override it)")
	rootCmd.AddCommand(serveCmd)
}
