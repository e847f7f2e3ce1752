/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/suparena/cloudstore"
	"github.com/suparena/cloudstore/config"
)

// app carries the global flags down to the subcommands.
type app struct {
	out        io.Writer
	configFile string
	envFile    string
}

func newRootCmd(out io.Writer) *cobra.Command {
	a := &app{out: out}

	root := &cobra.Command{
		Use:           "storectl",
		Short:         "Inspect and operate cloudstore tables and queues",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&a.configFile, "config", "", "YAML or JSON configuration file")
	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "dotenv file loaded before the environment")

	root.AddCommand(a.versionCmd(), a.tableCmd(), a.queueCmd())
	return root
}

// provider loads the layered configuration and connects the backends.
func (a *app) provider(cmd *cobra.Command) (*cloudstore.Provider, error) {
	v, err := config.Load(config.Options{File: a.configFile, EnvFile: a.envFile})
	if err != nil {
		return nil, err
	}
	return cloudstore.NewProvider(cmd.Context(), v)
}

func (a *app) print(v any) error {
	enc := yaml.NewEncoder(a.out)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

func (a *app) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.print(cloudstore.GetVersionInfo())
		},
	}
}

func (a *app) tableCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "table",
		Short: "Table operations",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "ensure <name>",
		Short: "Create a table if it does not exist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.provider(cmd)
			if err != nil {
				return err
			}
			defer p.Close()

			name, err := p.EnsureTable(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "table %s ready\n", name)
			return nil
		},
	})
	return cmd
}

func (a *app) queueCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Queue operations; <kind> is a message type such as Billing.InvoiceCreated",
	}

	var at string
	enqueue := &cobra.Command{
		Use:   "enqueue <kind> <payload>",
		Short: "Add a message",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.provider(cmd)
			if err != nil {
				return err
			}
			defer p.Close()
			q, err := p.Queue(args[0])
			if err != nil {
				return err
			}

			availableAt := time.Now()
			if at != "" {
				if availableAt, err = time.Parse(time.RFC3339, at); err != nil {
					return fmt.Errorf("--at: %w", err)
				}
			}
			msg, err := q.EnqueueAt(cmd.Context(), args[1], availableAt)
			if err != nil {
				return err
			}
			return a.print(msg)
		},
	}
	enqueue.Flags().StringVar(&at, "at", "", "RFC3339 time the message becomes visible")

	dequeue := &cobra.Command{
		Use:   "dequeue <kind>",
		Short: "Lease the next visible message and print it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.provider(cmd)
			if err != nil {
				return err
			}
			defer p.Close()
			q, err := p.Queue(args[0])
			if err != nil {
				return err
			}

			msg, err := q.Dequeue(cmd.Context())
			if err != nil {
				return err
			}
			if msg == nil {
				fmt.Fprintln(a.out, "no message")
				return nil
			}
			return a.print(msg)
		},
	}

	count := &cobra.Command{
		Use:   "count <kind>",
		Short: "Print the approximate number of messages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.provider(cmd)
			if err != nil {
				return err
			}
			defer p.Close()
			q, err := p.Queue(args[0])
			if err != nil {
				return err
			}

			n, err := q.Count(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, n)
			return nil
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear <kind>",
		Short: "Remove every message",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.provider(cmd)
			if err != nil {
				return err
			}
			defer p.Close()
			q, err := p.Queue(args[0])
			if err != nil {
				return err
			}

			if err := q.Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "queue %s cleared\n", q.Name())
			return nil
		},
	}

	cmd.AddCommand(enqueue, dequeue, count, clearCmd)
	return cmd
}
