package app

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/toddhamam/members-automation/internal/automation/domain"
)

// Convenience wrappers, one per lifecycle event. They exist purely to fix
// the context-key convention for each trigger; all behavior lives in
// TriggerAutomation.

// FireWelcome reacts to a new member signup.
func (d *Dispatcher) FireWelcome(ctx context.Context, recipientID uuid.UUID) {
	d.TriggerAutomation(ctx, domain.TriggerWelcome, domain.TriggerContext{
		RecipientID: recipientID,
	})
}

// FirePurchase reacts to any purchase. It evaluates both the generic
// purchase rules and the product-scoped purchase_specific rules under the
// same "purchase_{productId}" dedup key, so the two rule families are
// deduplicated independently (per rule) but against the same logical event.
func (d *Dispatcher) FirePurchase(ctx context.Context, recipientID uuid.UUID, productID, productName string) {
	tc := domain.TriggerContext{
		RecipientID: recipientID,
		ProductID:   productID,
		ProductName: productName,
		ContextKey:  fmt.Sprintf("purchase_%s", productID),
	}
	d.TriggerAutomation(ctx, domain.TriggerPurchase, tc)
	d.TriggerAutomation(ctx, domain.TriggerPurchaseSpecific, tc)
}

// FireCourseStarted reacts to a member opening a course for the first time.
func (d *Dispatcher) FireCourseStarted(ctx context.Context, recipientID uuid.UUID, productID, productName string) {
	d.TriggerAutomation(ctx, domain.TriggerCourseStarted, domain.TriggerContext{
		RecipientID: recipientID,
		ProductID:   productID,
		ProductName: productName,
		ContextKey:  fmt.Sprintf("course_started_%s", productID),
	})
}

// FireCourseProgress reacts to a progress milestone. Only the 25/50/75
// milestones map to trigger types; any other percentage is ignored.
func (d *Dispatcher) FireCourseProgress(ctx context.Context, recipientID uuid.UUID, productID, productName string, percent int) {
	var t domain.TriggerType
	switch percent {
	case 25:
		t = domain.TriggerCourseProgress25
	case 50:
		t = domain.TriggerCourseProgress50
	case 75:
		t = domain.TriggerCourseProgress75
	default:
		d.logger.Debug("Ignoring non-milestone course progress", "percent", percent, "product_id", productID)
		return
	}
	d.TriggerAutomation(ctx, t, domain.TriggerContext{
		RecipientID:     recipientID,
		ProductID:       productID,
		ProductName:     productName,
		ProgressPercent: &percent,
		ContextKey:      fmt.Sprintf("%s_%s", t, productID),
	})
}

// FireCourseCompleted reacts to a member finishing a course.
func (d *Dispatcher) FireCourseCompleted(ctx context.Context, recipientID uuid.UUID, productID, productName string) {
	percent := 100
	d.TriggerAutomation(ctx, domain.TriggerCourseCompleted, domain.TriggerContext{
		RecipientID:     recipientID,
		ProductID:       productID,
		ProductName:     productName,
		ProgressPercent: &percent,
		ContextKey:      fmt.Sprintf("course_completed_%s", productID),
	})
}

// FireInactivity reacts to a member having been away for the given number of
// days. Only the 7/14/30 day thresholds map to trigger types.
func (d *Dispatcher) FireInactivity(ctx context.Context, recipientID uuid.UUID, days int) {
	var t domain.TriggerType
	switch days {
	case 7:
		t = domain.TriggerInactivity7d
	case 14:
		t = domain.TriggerInactivity14d
	case 30:
		t = domain.TriggerInactivity30d
	default:
		d.logger.Debug("Ignoring unknown inactivity threshold", "days", days, "recipient_id", recipientID)
		return
	}
	d.TriggerAutomation(ctx, t, domain.TriggerContext{RecipientID: recipientID})
}

// FireAnniversary reacts to a membership anniversary. Only the 30/90/365 day
// marks map to trigger types.
func (d *Dispatcher) FireAnniversary(ctx context.Context, recipientID uuid.UUID, days int) {
	var t domain.TriggerType
	switch days {
	case 30:
		t = domain.TriggerAnniversary30d
	case 90:
		t = domain.TriggerAnniversary90d
	case 365:
		t = domain.TriggerAnniversary1y
	default:
		d.logger.Debug("Ignoring unknown anniversary mark", "days", days, "recipient_id", recipientID)
		return
	}
	d.TriggerAutomation(ctx, t, domain.TriggerContext{RecipientID: recipientID})
}

// FireFirstCommunityPost reacts to a member's first post on the board.
func (d *Dispatcher) FireFirstCommunityPost(ctx context.Context, recipientID uuid.UUID) {
	d.TriggerAutomation(ctx, domain.TriggerFirstCommunityPost, domain.TriggerContext{
		RecipientID: recipientID,
	})
}
