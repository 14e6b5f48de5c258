package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/bavix/avwatch/internal/devices"
)

func newListCmd() *cobra.Command {
	var (
		asJSON bool
		role   string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Enumerate devices once and print them",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			enumerator, err := buildEnumerator(&cfg.Source)
			if err != nil {
				return err
			}

			opts := []devices.Option{
				devices.WithEnumerationTimeout(cfg.Source.Timeout),
				devices.WithScheduler(func(fn func()) { fn() }),
			}
			if cfg.Source.RedactLabels {
				opts = append(opts, devices.WithDecorators(devices.NewLabelRedactor()))
			}

			manager := devices.New(ctx, enumerator, opts...)
			defer func() { _ = manager.Close() }()

			list := manager.Devices()
			if role != "" {
				if list, err = manager.DevicesByRole(devices.Role(role)); err != nil {
					return err
				}
			}

			if !manager.KnownDevices() {
				zerolog.Ctx(ctx).Warn().
					Str("enumerator", enumerator.Name()).
					Msg("no devices reported, showing placeholders")
			}

			if asJSON {
				return writeDevicesJSON(cmd.OutOrStdout(), list)
			}

			return writeDevicesTable(cmd.OutOrStdout(), list)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	cmd.Flags().StringVar(&role, "role", "", "Only print one role: camera, microphone, speaker")

	return cmd
}

func writeDevicesJSON(w io.Writer, list []*devices.Device) error {
	if list == nil {
		list = []*devices.Device{}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(list)
}

func writeDevicesTable(w io.Writer, list []*devices.Device) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	_, _ = fmt.Fprintln(tw, "ID\tKIND\tGROUP\tNAME")
	for _, d := range list {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", d.DeviceID, d.Kind, d.GroupID, d.Name())
	}

	return tw.Flush()
}
