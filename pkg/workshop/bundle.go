package workshop

import (
	"context"
)

type bundlePublisher struct {
	s *Session
}

func (p *bundlePublisher) Variant() Variant { return VariantBundle }

// Publish updates an existing item from a directory. The guard runs before
// any update-session call.
func (p *bundlePublisher) Publish(ctx context.Context, req Request) (res PublishResult, err error) {
	const op = "bundle_publish"
	s := p.s
	item := req.ItemID
	dir := req.Content.ContentPath
	res = PublishResult{ItemID: item, Variant: VariantBundle}

	if item == 0 {
		return res, &Error{Kind: KindUnsupportedOperation, Op: op, Msg: "new item creation via bundle path not supported, publish with legacy mode first"}
	}
	if !isDir(dir) {
		return res, &Error{Kind: KindNotFound, Op: op, Path: dir, Msg: "no such directory"}
	}

	r := s.newRun(ctx, VariantBundle, item)
	defer func() { r.finish(err) }()

	details, err := s.ItemDetails(ctx, item)
	if err != nil {
		return res, err
	}
	if err := s.guard.Check(s.app, details); err != nil {
		s.metrics.IncSafetyDenied(s.app)
		return res, err
	}

	r.to(StateStaging)
	uh := s.platform.StartItemUpdate(s.app, item)
	if uh == InvalidUpdateHandle {
		return res, &Error{Kind: KindRemoteCallRejected, Op: op, Item: item, Err: ErrRemoteUpdateFailed, Msg: "update session not started"}
	}
	defer s.platform.ReleaseItemUpdate(uh)

	if !s.platform.SetItemContent(uh, dir) {
		return res, &Error{Kind: KindRemoteCallRejected, Op: op, Item: item, Path: dir, Err: ErrContentAssignmentFailed, Msg: "item content could not be set"}
	}

	r.to(StateUpdateSubmitted)
	s.logger.Info("submitting item update", "item", item, "title", details.Title, "change_notes", req.Content.ChangeNotes)
	out, err := Await(ctx, s.corr, "submit_item_update", func() CallHandle {
		h := s.platform.SubmitItemUpdate(uh, req.Content.ChangeNotes)
		if h != InvalidCallHandle {
			r.to(StateAwaitingCompletion)
		}
		return h
	}, func(comp Completion) (SubmitItemUpdateResult, error) {
		sr, ok := comp.Payload.(SubmitItemUpdateResult)
		if !ok {
			return sr, unexpectedPayload(op, comp)
		}
		return sr, nil
	})
	if err != nil {
		return res, err
	}

	res.NeedsLegalAgreement = out.NeedsLegalAgreement
	r.to(StateCommitted)
	s.logger.Info("item updated on workshop", "item", item, "needs_legal_agreement", out.NeedsLegalAgreement)
	if out.NeedsLegalAgreement {
		s.logger.Warn("the workshop legal agreement must be accepted before the item becomes visible", "item", item)
	}
	return res, nil
}
