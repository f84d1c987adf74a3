package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/claim-intel/internal/model"
	"github.com/sells-group/claim-intel/internal/similarity"
	"github.com/sells-group/claim-intel/internal/store"
)

var (
	claimsImportIntake bool
	claimsListOrg      string
	claimsListCarrier  string
	claimsListLimit    int
)

var claimsCmd = &cobra.Command{
	Use:   "claims",
	Short: "Manage the claim inventory",
}

var claimsImportCmd = &cobra.Command{
	Use:   "import <file.json>",
	Short: "Import claims from a JSON array and index them for similarity search",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		data, err := os.ReadFile(args[0])
		if err != nil {
			return eris.Wrap(err, "read claims file")
		}

		var claims []model.Claim
		if err := json.Unmarshal(data, &claims); err != nil {
			return eris.Wrap(err, "decode claims file")
		}

		env, err := initCore(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		for _, claim := range claims {
			if claim.ID == "" {
				claim.ID = uuid.NewString()
			}
			if claim.CreatedAt.IsZero() {
				claim.CreatedAt = time.Now().UTC()
			}

			if err := env.Store.UpsertClaim(ctx, claim); err != nil {
				return err
			}
			if err := env.Store.PutEmbedding(ctx, claim.ID, similarity.EmbedClaim(claim)); err != nil {
				return err
			}

			if claimsImportIntake {
				latest, err := env.Store.LatestStateEntry(ctx, claim.ID)
				if err != nil {
					return err
				}
				if latest == nil {
					if _, err := env.Machine.Transition(ctx, claim.ID, claim.OrgID, model.StateIntake, "imported"); err != nil {
						return err
					}
				}
			}
		}

		zap.L().Info("imported claims", zap.Int("count", len(claims)))

		return nil
	},
}

var claimsShowCmd = &cobra.Command{
	Use:   "show <claim-id>",
	Short: "Print a claim as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initCore(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		claim, err := env.Store.GetClaim(ctx, args[0])
		if err != nil {
			return err
		}

		data, err := json.MarshalIndent(claim, "", "  ")
		if err != nil {
			return eris.Wrap(err, "encode claim")
		}
		fmt.Println(string(data))

		return nil
	},
}

var claimsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List claims, optionally filtered by org or carrier",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initCore(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		claims, err := env.Store.ListClaims(ctx, store.ClaimFilter{
			OrgID:   claimsListOrg,
			Carrier: claimsListCarrier,
			Limit:   claimsListLimit,
		})
		if err != nil {
			return err
		}

		for _, c := range claims {
			fmt.Printf("%-24s %-14s %-16s %-10s %10.2f\n", c.ID, c.OrgID, c.Carrier, c.DamageType, c.EstimatedValue)
		}

		return nil
	},
}

func init() {
	claimsImportCmd.Flags().BoolVar(&claimsImportIntake, "intake", false, "move claims with no history into INTAKE after import")
	claimsListCmd.Flags().StringVar(&claimsListOrg, "org", "", "filter by organization id")
	claimsListCmd.Flags().StringVar(&claimsListCarrier, "carrier", "", "filter by carrier")
	claimsListCmd.Flags().IntVar(&claimsListLimit, "limit", 50, "maximum claims to list")

	claimsCmd.AddCommand(claimsImportCmd, claimsShowCmd, claimsListCmd)
	rootCmd.AddCommand(claimsCmd)
}
