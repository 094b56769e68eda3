package main

import (
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/alwayscodedfresh/lead-cli/internal/config"
)

var (
	contactsID    string
	contactsLimit int

	viabilityID    string
	viabilityLimit int

	pitchID    string
	pitchLimit int
)

var contactsCmd = &cobra.Command{
	Use:   "contacts",
	Short: "Heuristic contact extraction",
}

var contactsAnalyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Extract contact signals for one lead (--id) or a batch of unscanned leads",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(config.ModeContacts); err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		svc := newServices(cfg, st)

		if contactsID != "" {
			lead, err := st.GetByID(ctx, contactsID)
			if err != nil {
				return err
			}
			res, err := svc.Contacts.AnalyzeLead(ctx, lead)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		}

		limit := cfg.Contacts.BatchLimit
		if cmd.Flags().Changed("limit") {
			limit = contactsLimit
		}
		res, err := svc.Contacts.AnalyzeBatch(ctx, limit)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), res)
	},
}

var viabilityCmd = &cobra.Command{
	Use:   "viability",
	Short: "AI viability classification",
}

var viabilityAnalyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Classify one lead (--id) or a batch of leads with a pending verdict",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(config.ModeViability); err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		sender, err := newSender(cfg)
		if err != nil {
			return err
		}
		cls := newClassifier(cfg, sender, st)

		if viabilityID != "" {
			lead, err := st.GetByID(ctx, viabilityID)
			if err != nil {
				return err
			}
			out, err := cls.Analyze(ctx, lead)
			if err != nil {
				return err
			}
			if err := printJSON(cmd.OutOrStdout(), out.Analysis); err != nil {
				return err
			}
			if out.Err != nil {
				return eris.Wrapf(out.Err, "classify lead %s", lead.ID)
			}
			return nil
		}

		limit := cfg.Viability.BatchLimit
		if cmd.Flags().Changed("limit") {
			limit = viabilityLimit
		}
		res, err := cls.AnalyzeBatch(ctx, limit)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), res)
	},
}

var pitchCmd = &cobra.Command{
	Use:   "pitch",
	Short: "AI outreach drafting",
}

var pitchGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Draft email and SMS pitches for one lead (--id) or a batch of contactable leads",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(config.ModePitch); err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		sender, err := newSender(cfg)
		if err != nil {
			return err
		}
		gen := newPitcher(cfg, sender, st)

		if pitchID != "" {
			lead, err := st.GetByID(ctx, pitchID)
			if err != nil {
				return err
			}
			p, err := gen.Generate(ctx, lead)
			if err != nil {
				return eris.Wrapf(err, "pitch lead %s", lead.ID)
			}
			return printJSON(cmd.OutOrStdout(), p)
		}

		limit := cfg.Pitch.BatchLimit
		if cmd.Flags().Changed("limit") {
			limit = pitchLimit
		}
		res, err := gen.GenerateBatch(ctx, limit)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), res)
	},
}

func init() {
	contactsAnalyzeCmd.Flags().StringVar(&contactsID, "id", "", "analyze a single lead by id")
	contactsAnalyzeCmd.Flags().IntVar(&contactsLimit, "limit", 50, "maximum leads in batch mode")
	contactsCmd.AddCommand(contactsAnalyzeCmd)
	rootCmd.AddCommand(contactsCmd)

	viabilityAnalyzeCmd.Flags().StringVar(&viabilityID, "id", "", "classify a single lead by id")
	viabilityAnalyzeCmd.Flags().IntVar(&viabilityLimit, "limit", 50, "maximum leads in batch mode")
	viabilityCmd.AddCommand(viabilityAnalyzeCmd)
	rootCmd.AddCommand(viabilityCmd)

	pitchGenerateCmd.Flags().StringVar(&pitchID, "id", "", "pitch a single lead by id")
	pitchGenerateCmd.Flags().IntVar(&pitchLimit, "limit", 20, "maximum leads in batch mode")
	pitchCmd.AddCommand(pitchGenerateCmd)
	rootCmd.AddCommand(pitchCmd)
}
