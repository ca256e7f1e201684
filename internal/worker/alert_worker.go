package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// AlertDigest is one scan's worth of low-ownership and outstanding-payment
// alerts, mailed to operators.
type AlertDigest struct {
	GeneratedAt  time.Time          `json:"generated_at"`
	Threshold    decimal.Decimal    `json:"threshold_grams"`
	LowOwnership []LowOwnershipLine `json:"low_ownership"`
	Outstanding  []OutstandingLine  `json:"outstanding"`
}

type LowOwnershipLine struct {
	ItemKey  string          `json:"item_key"`
	ItemName string          `json:"item_name"`
	Unit     string          `json:"unit"`
	BranchID string          `json:"branch_id"`
	Weight   decimal.Decimal `json:"weight"`
	Quantity decimal.Decimal `json:"quantity"`
}

type OutstandingLine struct {
	SupplierID  string          `json:"supplier_id"`
	AmountOwed  decimal.Decimal `json:"amount_owed"`
	Lots        int             `json:"lots"`
	OldestLotAt time.Time       `json:"oldest_lot_at"`
}

func (d AlertDigest) Empty() bool { return len(d.LowOwnership) == 0 && len(d.Outstanding) == 0 }

// MailSender is the part of infra.Mailer the digest worker needs.
type MailSender interface {
	Configured() bool
	Send(to []string, subject, text, html string) error
}

// AlertDigestWorker mails alert digests to the operator list.
type AlertDigestWorker struct {
	mailer MailSender
	to     []string
}

func NewAlertDigestWorker(mailer MailSender, recipients string) *AlertDigestWorker {
	var to []string
	for _, r := range strings.Split(recipients, ",") {
		if r = strings.TrimSpace(r); r != "" {
			to = append(to, r)
		}
	}
	return &AlertDigestWorker{mailer: mailer, to: to}
}

func (w *AlertDigestWorker) Process(_ context.Context, raw json.RawMessage) error {
	var digest AlertDigest
	if err := json.Unmarshal(raw, &digest); err != nil {
		log.Error().Err(err).Msg("alert_worker: invalid payload")
		return nil
	}
	if digest.Empty() {
		return nil
	}
	if !w.mailer.Configured() || len(w.to) == 0 {
		log.Warn().
			Int("low_ownership", len(digest.LowOwnership)).
			Int("outstanding", len(digest.Outstanding)).
			Msg("alert_worker: mail not configured, digest only logged")
		return nil
	}

	subject, text := renderDigest(digest)
	body := "<pre>" + html.EscapeString(text) + "</pre>"
	if err := w.mailer.Send(w.to, subject, text, body); err != nil {
		return err
	}
	log.Info().Strs("to", w.to).Str("subject", subject).Msg("alert_worker: digest sent")
	return nil
}

func renderDigest(d AlertDigest) (subject, text string) {
	subject = fmt.Sprintf("Gold ledger alerts: %d low ownership, %d outstanding payables",
		len(d.LowOwnership), len(d.Outstanding))

	var b strings.Builder
	fmt.Fprintf(&b, "Generated %s\n", d.GeneratedAt.UTC().Format(time.RFC1123))
	if len(d.LowOwnership) > 0 {
		fmt.Fprintf(&b, "\nLow ownership (threshold %s g)\n", d.Threshold.String())
		for _, l := range d.LowOwnership {
			measure := l.Weight.StringFixed(3) + " g"
			if l.Unit == "unit" {
				measure = fmt.Sprintf("%s units (%s g)", l.Quantity.String(), l.Weight.StringFixed(3))
			}
			fmt.Fprintf(&b, "  %-40s branch %s  %s\n", l.ItemName, l.BranchID, measure)
		}
	}
	if len(d.Outstanding) > 0 {
		b.WriteString("\nOutstanding supplier payables\n")
		for _, o := range d.Outstanding {
			fmt.Fprintf(&b, "  supplier %s  owed %s across %d lots, oldest %s\n",
				o.SupplierID, o.AmountOwed.StringFixed(2), o.Lots, o.OldestLotAt.UTC().Format("2006-01-02"))
		}
	}
	return subject, b.String()
}
