package main

import (
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/dmitrymomot/featurelimits/pkg/limits"
)

func newCheckCmd(a *app) *cobra.Command {
	var (
		amount int64
		plan   string
	)

	cmd := &cobra.Command{
		Use:   "check <user-id> <feature>",
		Short: "Print the limit decision for a user and feature as JSON",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := uuid.Parse(args[0])
			if err != nil {
				return err
			}
			feature, err := limits.ParseFeatureKey(args[1])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if plan != "" {
				p, err := limits.ParsePlanType(plan)
				if err != nil {
					return err
				}
				ctx = limits.SetPlanToContext(ctx, p)
			}

			st, err := openStack(ctx, a.cfg, a.log)
			if err != nil {
				return err
			}
			defer st.Close()

			res, err := st.svc.CanUseFeature(ctx, userID, feature, amount)
			if err != nil && !errors.Is(err, limits.ErrFeatureNotConfigured) {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}

	cmd.Flags().Int64Var(&amount, "amount", 1, "units the user wants to consume")
	cmd.Flags().StringVar(&plan, "plan", "", "plan to assume for the user (memory backend)")
	return cmd
}

func newSetPlanCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "set-plan <user-id> <plan>",
		Short: "Assign a plan to a user in the postgres or mongo backend",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := uuid.Parse(args[0])
			if err != nil {
				return err
			}
			plan, err := limits.ParsePlanType(args[1])
			if err != nil {
				return err
			}

			st, err := openStack(cmd.Context(), a.cfg, a.log)
			if err != nil {
				return err
			}
			defer st.Close()

			if st.plans == nil {
				return errPlanNotSupported
			}
			return st.plans.SetUserPlan(cmd.Context(), userID, plan)
		},
	}
}
