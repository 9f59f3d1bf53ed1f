// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mleitner/leavetray/internal/config"
	"github.com/mleitner/leavetray/internal/log"
	"github.com/mleitner/leavetray/internal/report"
)

func newFetchCmd() *cobra.Command {
	var employeeID, date string
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch today's entrance time from the report server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			client, err := reportClient()
			if err != nil {
				return err
			}
			match, err := client.FetchEntranceTime(ctx, report.FetchOptions{
				EmployeeID: employeeID,
				Date:       date,
			})
			if err != nil {
				var rerr *report.Error
				if errors.As(err, &rerr) {
					return errors.New(rerr.Message())
				}
				return err
			}
			fmt.Printf("%s (source: %s, matched: %q)\n", match.Time, match.Source, match.Raw)
			return nil
		},
	}
	cmd.Flags().StringVar(&employeeID, "employee-id", "", "employee ID report parameter")
	cmd.Flags().StringVar(&date, "date", "", "report date (YYYY-MM-DD, defaults to today)")
	return cmd
}

func newTestConnCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test-conn",
		Short: "Probe connectivity to the report server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			client, err := reportClient()
			if err != nil {
				return err
			}
			probe := client.TestConnection(ctx)
			fmt.Println(probe.Message)
			if !probe.OK {
				return errors.New("connection test failed")
			}
			return nil
		},
	}
}

func reportClient() (*report.Client, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, err
	}
	log.Configure(log.Config{Level: cfg.LogLevel, Service: "leavetray", Version: version})
	return report.New(report.Config{
		ServerURL:         cfg.Report.ServerURL,
		ReportPath:        cfg.Report.ReportPath,
		Username:          cfg.Report.Username,
		Password:          cfg.Report.Password,
		Domain:            cfg.Report.Domain,
		UseIntegratedAuth: cfg.Report.UseIntegratedAuth,
	}), nil
}
