package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"solarintake/internal/geodesy"
	"solarintake/internal/intake/masking"
	"solarintake/internal/intake/models"
	"solarintake/internal/intake/power"
)

func newProjectCmd() *cobra.Command {
	var lat, lon float64
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Project a WGS84 coordinate to UTM",
		RunE: func(cmd *cobra.Command, _ []string) error {
			coord := geodesy.Coordinate{Latitude: lat, Longitude: lon}
			if err := coord.Validate(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), geodesy.ProjectCoordinate(coord).String())
			return nil
		},
	}
	cmd.Flags().Float64Var(&lat, "lat", 0, "latitude in decimal degrees")
	cmd.Flags().Float64Var(&lon, "lon", 0, "longitude in decimal degrees")
	_ = cmd.MarkFlagRequired("lat")
	_ = cmd.MarkFlagRequired("lon")
	return cmd
}

func newMaskCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mask KIND VALUE",
		Short: "Format a raw value with a display mask",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, ok := masking.ParseKind(args[0])
			if !ok {
				return fmt.Errorf("unknown mask kind %q", args[0])
			}
			fmt.Fprintln(cmd.OutOrStdout(), masking.Mask(kind, args[1]))
			return nil
		},
	}
}

func newPowerCmd() *cobra.Command {
	var voltage, breaker, phase string
	cmd := &cobra.Command{
		Use:   "power",
		Short: "Derive available power in kW",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, ok := models.ParsePhase(phase)
			if !ok {
				return fmt.Errorf("unknown phase type %q", phase)
			}
			fmt.Fprintln(cmd.OutOrStdout(), power.Derive(voltage, breaker, p))
			return nil
		},
	}
	cmd.Flags().StringVar(&voltage, "voltage", "", "supply voltage, e.g. 220")
	cmd.Flags().StringVar(&breaker, "breaker", "", "main breaker rating in amperes, e.g. 40")
	cmd.Flags().StringVar(&phase, "phase", string(models.PhaseSplit), "connection type: single, split or three")
	return cmd
}
