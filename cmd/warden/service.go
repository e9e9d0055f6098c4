package main

import (
	"fmt"

	"github.com/kardianos/service"
	"github.com/spf13/cobra"

	"github.com/flemzord/warden/pkg/app"
)

func serviceCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "service",
		Short: "Manage warden as a system service",
	}
	for _, action := range []string{"install", "uninstall", "start", "stop", "restart"} {
		cmd.AddCommand(serviceControlCmd(flags, action))
	}
	cmd.AddCommand(&cobra.Command{
		Use:    "run",
		Short:  "Run under the service manager",
		Hidden: true,
		Args:   cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			svc, err := newService(flags)
			if err != nil {
				return err
			}
			return svc.Run()
		},
	})
	return cmd
}

func serviceControlCmd(flags *globalFlags, action string) *cobra.Command {
	return &cobra.Command{
		Use:   action,
		Short: fmt.Sprintf("%s the %s service", action, app.ServiceName),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := newService(flags)
			if err != nil {
				return err
			}
			if err := service.Control(svc, action); err != nil {
				return fmt.Errorf("service %s: %w", action, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Service %s: done.\n", action)
			return nil
		},
	}
}

func newService(flags *globalFlags) (service.Service, error) {
	params := flags.params()
	cfg, err := app.ServiceConfig(params)
	if err != nil {
		return nil, err
	}
	return service.New(app.NewProgram(params), cfg)
}
