package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/pantry-finder/internal/render"
)

// -- tract --

var tractCmd = &cobra.Command{
	Use:   "tract",
	Short: "Print the census tract GEOID containing a coordinate",
	RunE: func(cmd *cobra.Command, _ []string) error {
		lat, _ := cmd.Flags().GetFloat64("lat")
		lon, _ := cmd.Flags().GetFloat64("lon")

		ds, err := loadData(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		if ds.Tracts == nil {
			return eris.New("tract: no tract boundaries configured")
		}
		geoid, err := ds.Tracts.Resolve(lon, lat)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), geoid)
		return nil
	},
}

// -- categories --

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List the category filters present in the travel index",
	RunE: func(cmd *cobra.Command, _ []string) error {
		format, err := render.ParseFormat(flagString(cmd, "format"))
		if err != nil {
			return err
		}
		ds, err := loadData(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		return render.Facets(cmd.OutOrStdout(), format, ds.Travel.Facets())
	},
}

// -- validate --

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Load every reference table and print load reports",
	RunE: func(cmd *cobra.Command, _ []string) error {
		format, err := render.ParseFormat(flagString(cmd, "format"))
		if err != nil {
			return err
		}
		ds, err := loadData(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		return render.Reports(cmd.OutOrStdout(), format, ds.Reports)
	},
}

func flagString(cmd *cobra.Command, name string) string {
	v, _ := cmd.Flags().GetString(name)
	return v
}

func init() {
	tractCmd.Flags().Float64("lat", 0, "latitude")
	tractCmd.Flags().Float64("lon", 0, "longitude")
	_ = tractCmd.MarkFlagRequired("lat")
	_ = tractCmd.MarkFlagRequired("lon")

	categoriesCmd.Flags().String("format", "table", "output format: table, json or yaml")
	validateCmd.Flags().String("format", "table", "output format: table, json or yaml")

	rootCmd.AddCommand(tractCmd, categoriesCmd, validateCmd)
}
