package main

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/alwayscodedfresh/lead-cli/internal/config"
	"github.com/alwayscodedfresh/lead-cli/internal/model"
	"github.com/alwayscodedfresh/lead-cli/internal/store"
)

// Named filters accepted by `leads list --filter` and GET /api/leads.
const (
	FilterAll                = "all"
	FilterPendingViability   = "pending-viability"
	FilterViable             = "viable"
	FilterNotViable          = "not-viable"
	FilterUnscannedContacts  = "unscanned-contacts"
	FilterPendingReview      = "pending-review"
	FilterReviewed           = "reviewed"
	FilterAgreement          = "agreement"
	FilterDisagreement       = "disagreement"
	FilterNeedsCompanyDetail = "needs-company-research"
	FilterHasContacts        = "has-contacts"
	FilterNeedsPitch         = "needs-pitch"
)

// parseLeadFilter maps a named filter and an optional pipeline status onto a
// store.LeadFilter.
func parseLeadFilter(name, status, source string, limit, offset int) (store.LeadFilter, error) {
	f := store.LeadFilter{Source: strings.TrimSpace(source), Limit: limit, Offset: offset}
	if strings.TrimSpace(status) != "" {
		st, err := model.ParseStatus(status)
		if err != nil {
			return f, err
		}
		f.Status = string(st)
	}
	yes, no := true, false
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", FilterAll:
	case FilterPendingViability:
		f.PendingViability = true
	case FilterViable:
		f.Viable = &yes
	case FilterNotViable:
		f.Viable = &no
	case FilterUnscannedContacts:
		f.UnscannedCompanyDetails = true
	case FilterPendingReview:
		f.PendingHumanReview = true
	case FilterReviewed:
		f.HumanReviewed = true
	case FilterAgreement:
		f.Agreement = true
	case FilterDisagreement:
		f.Disagreement = true
	case FilterNeedsCompanyDetail:
		f.Viable = &yes
		f.UnscannedCompanyDetails = true
	case FilterHasContacts:
		f.HasContacts = true
	case FilterNeedsPitch:
		f.HasContacts = true
		f.Unpitched = true
	default:
		return f, &model.ValidationError{Field: "filter", Reason: "unknown filter " + name}
	}
	return f, nil
}

// leadView adds derived review state to a lead for output.
type leadView struct {
	*model.Lead
	AIHumanMatch         *bool `json:"ai_human_match,omitempty"`
	NeedsHumanReview     bool  `json:"needs_human_review"`
	NeedsCompanyResearch bool  `json:"needs_company_research"`
}

func newLeadView(l *model.Lead) leadView {
	v := leadView{
		Lead:                 l,
		NeedsHumanReview:     l.NeedsHumanReview(),
		NeedsCompanyResearch: l.NeedsCompanyResearch(),
	}
	if match, ok := l.AIHumanMatch(); ok {
		v.AIHumanMatch = &match
	}
	return v
}

func newLeadViews(leads []model.Lead) []leadView {
	out := make([]leadView, len(leads))
	for i := range leads {
		out[i] = newLeadView(&leads[i])
	}
	return out
}

// reviewLead records the human verdict for id. A lead that already has a
// verdict yields a ValidationError.
func reviewLead(ctx context.Context, st store.Store, id string, viable bool, now time.Time) (*model.Lead, error) {
	lead, err := st.Review(ctx, id, viable, now)
	if err != nil {
		return nil, eris.Wrapf(err, "review lead %s", id)
	}
	return lead, nil
}

// setLeadStatus moves id to a pipeline status, writing only that column.
func setLeadStatus(ctx context.Context, st store.Store, id, status string) (*model.Lead, error) {
	s, err := model.ParseStatus(status)
	if err != nil {
		return nil, err
	}
	lead, err := st.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	lead.Status = s
	if err := st.Update(ctx, lead, store.StatusColumns...); err != nil {
		return nil, eris.Wrapf(err, "set status for lead %s", id)
	}
	return lead, nil
}

var (
	leadsFilter string
	leadsStatus string
	leadsSource string
	leadsLimit  int
	leadsOffset int

	reviewID     string
	reviewViable string

	statusID  string
	statusSet string
)

var leadsCmd = &cobra.Command{
	Use:   "leads",
	Short: "Inspect stored leads",
}

var leadsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List leads newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(config.ModeStore); err != nil {
			return err
		}
		f, err := parseLeadFilter(leadsFilter, leadsStatus, leadsSource, leadsLimit, leadsOffset)
		if err != nil {
			return err
		}
		st, err := initStore(cmd.Context(), cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		leads, err := st.Query(cmd.Context(), f)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), newLeadViews(leads))
	},
}

var leadsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show lead counts by stage",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(config.ModeStore); err != nil {
			return err
		}
		st, err := initStore(cmd.Context(), cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		stats, err := st.Stats(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), stats)
	},
}

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Record a human viability verdict for a lead",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(config.ModeStore); err != nil {
			return err
		}
		verdict, err := model.ParseTriState(reviewViable)
		if err != nil {
			return err
		}
		viable, ok := verdict.Bool()
		if !ok {
			return &model.ValidationError{Field: "viable", Reason: "must be true or false"}
		}

		st, err := initStore(cmd.Context(), cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		lead, err := reviewLead(cmd.Context(), st, reviewID, viable, time.Now().UTC())
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), newLeadView(lead))
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Move a lead through the sales pipeline",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(config.ModeStore); err != nil {
			return err
		}
		if _, err := model.ParseStatus(statusSet); err != nil {
			return err
		}
		st, err := initStore(cmd.Context(), cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		lead, err := setLeadStatus(cmd.Context(), st, statusID, statusSet)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), newLeadView(lead))
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the leads schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(config.ModeStore); err != nil {
			return err
		}
		st, err := initStore(cmd.Context(), cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		cmd.Printf("schema up to date (%s)\n", cfg.Store.Driver)
		return nil
	},
}

func init() {
	leadsListCmd.Flags().StringVar(&leadsFilter, "filter", FilterAll, "named filter: all, pending-viability, viable, not-viable, unscanned-contacts, pending-review, reviewed, agreement, disagreement, needs-company-research, has-contacts, needs-pitch")
	leadsListCmd.Flags().StringVar(&leadsStatus, "status", "", "only leads in this pipeline status: new_lead, contacted, qualified, lost, closed")
	leadsListCmd.Flags().StringVar(&leadsSource, "source", "", "only leads from this source")
	leadsListCmd.Flags().IntVar(&leadsLimit, "limit", store.DefaultLimit, "maximum leads to list")
	leadsListCmd.Flags().IntVar(&leadsOffset, "offset", 0, "leads to skip")
	leadsCmd.AddCommand(leadsListCmd, leadsStatsCmd)
	rootCmd.AddCommand(leadsCmd)

	reviewCmd.Flags().StringVar(&reviewID, "id", "", "lead id")
	reviewCmd.Flags().StringVar(&reviewViable, "viable", "", "human verdict: true or false")
	_ = reviewCmd.MarkFlagRequired("id")
	_ = reviewCmd.MarkFlagRequired("viable")
	rootCmd.AddCommand(reviewCmd)

	statusCmd.Flags().StringVar(&statusID, "id", "", "lead id")
	statusCmd.Flags().StringVar(&statusSet, "set", "", "new status: new_lead, contacted, qualified, lost, closed")
	_ = statusCmd.MarkFlagRequired("id")
	_ = statusCmd.MarkFlagRequired("set")
	rootCmd.AddCommand(statusCmd)

	rootCmd.AddCommand(migrateCmd)
}
