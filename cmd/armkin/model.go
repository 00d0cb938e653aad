package main

import (
	"github.com/spf13/cobra"

	"armkin"
)

func modelCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "model",
		Short: "Inspect and export the kinematic model",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "save <path>",
		Short: "Write the active model to a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, _, err := a.engine()
			if err != nil {
				return err
			}
			if err := armkin.SaveModelToFile(args[0], eng.Model()); err != nil {
				return err
			}
			a.log().Infof("saved model %q to %s", eng.Model().Name, args[0])
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print link lengths, joint limits and reach of the active model",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, _, err := a.engine()
			if err != nil {
				return err
			}
			m := eng.Model()
			limits := make(map[armkin.Joint]armkin.LimitEntry, armkin.NumJoints)
			for j, l := range m.Limits {
				limits[armkin.Joint(j)] = armkin.LimitEntry{Min: l.Min, Max: l.Max}
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"name":      m.Name,
				"links":     m.Lengths,
				"limits":    limits,
				"max_reach": m.MaxReach(),
			})
		},
	})
	return cmd
}
