package main

import (
	"github.com/golang/geo/r3"
	"github.com/spf13/cobra"

	"armkin"
)

type fkOutput struct {
	Joints   armkin.JointVector `json:"joints"`
	Position r3.Vector          `json:"position"`
}

func fkCmd(a *app) *cobra.Command {
	var joints string
	cmd := &cobra.Command{
		Use:   "fk",
		Short: "Compute the end effector position for a joint configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := armkin.ParseJointVector(joints)
			if err != nil {
				return err
			}
			eng, _, err := a.engine()
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), fkOutput{Joints: q, Position: eng.ForwardKinematics(q)})
		},
	}
	cmd.Flags().StringVar(&joints, "joints", "", "joint angles in degrees, e.g. base=10,shoulder=-20")
	return cmd
}

func diagCmd(a *app) *cobra.Command {
	var joints string
	cmd := &cobra.Command{
		Use:   "diag",
		Short: "Report position, manipulability and limit margins for a joint configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := armkin.ParseJointVector(joints)
			if err != nil {
				return err
			}
			eng, _, err := a.engine()
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), eng.Diagnostics(q))
		},
	}
	cmd.Flags().StringVar(&joints, "joints", "", "joint angles in degrees, e.g. base=10,shoulder=-20")
	return cmd
}
