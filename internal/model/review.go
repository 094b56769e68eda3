package model

import (
	"strings"
	"time"
)

// MarkScannedForRelevance records the AI verdict. The scanned flag only ever
// moves to true.
func (l *Lead) MarkScannedForRelevance(viable bool, score *float64, reasoning string, now time.Time) {
	l.ViablePost = FromBool(viable)
	l.AIRelevanceScore = score
	l.AIRelevanceReasoning = reasoning
	l.ScannedForRelevance = true
	l.AIScannedAt = &now
}

// MarkHumanReview records the reviewer verdict. A lead that was already
// reviewed cannot be reviewed again.
func (l *Lead) MarkHumanReview(viable bool, now time.Time) error {
	if !l.ViablePostHuman.IsPending() {
		return &ValidationError{Field: "viable_post_human", Reason: "already reviewed"}
	}
	l.ViablePostHuman = FromBool(viable)
	l.HumanReviewedAt = &now
	return nil
}

// MarkCompanyResearchComplete sets the company-details flag and stores notes
// when given.
func (l *Lead) MarkCompanyResearchComplete(notes string) {
	l.ScannedForCompanyDetails = true
	if n := strings.TrimSpace(notes); n != "" {
		l.CompanyResearchNotes = n
	}
}

func (l *Lead) NeedsHumanReview() bool { return l.ViablePostHuman.IsPending() }

// NeedsCompanyResearch reports leads the AI marked viable that have not had
// their company details scanned.
func (l *Lead) NeedsCompanyResearch() bool {
	return l.ViablePost == True && !l.ScannedForCompanyDetails
}

// AIHumanMatch compares the AI and human verdicts. ok is false until both
// axes are decided.
func (l *Lead) AIHumanMatch() (match bool, ok bool) {
	ai, aiOK := l.ViablePost.Bool()
	human, humanOK := l.ViablePostHuman.Bool()
	if !aiOK || !humanOK {
		return false, false
	}
	return ai == human, true
}

// MarkPitched stores generated outreach copy.
func (l *Lead) MarkPitched(email, sms string, now time.Time) {
	l.EmailPitch = strings.TrimSpace(email)
	l.SMSPitch = strings.TrimSpace(sms)
	l.PitchedAt = &now
}
