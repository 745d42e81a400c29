package workshop

import (
	"context"
	"fmt"
	"strings"
)

type legacyPublisher struct {
	s *Session
}

func (p *legacyPublisher) Variant() Variant { return VariantLegacy }

func (p *legacyPublisher) Publish(ctx context.Context, req Request) (res PublishResult, err error) {
	const op = "legacy_publish"
	s := p.s
	c := req.Content
	res = PublishResult{ItemID: req.ItemID, Variant: VariantLegacy}

	if req.ItemID == 0 {
		if strings.TrimSpace(c.Title) == "" {
			return res, missingField(op, "title")
		}
		if strings.TrimSpace(c.Description) == "" {
			return res, missingField(op, "description")
		}
	}
	if !isFile(c.ContentPath) {
		return res, notFound(op, c.ContentPath)
	}

	r := s.newRun(ctx, VariantLegacy, req.ItemID)
	defer func() {
		if err != nil {
			r.to(StateFailed)
		}
		if _, perr := s.stager.PurgeStale(); perr != nil {
			if err == nil {
				err = perr
				r.to(StateFailed)
			} else {
				s.logger.Error("cleanup after failed publish", "error", perr)
			}
		}
		r.to(StateCleanedUp)
	}()

	r.to(StateStaging)
	content, err := p.stage(ctx, c.ContentPath)
	if err != nil {
		return res, err
	}
	res.Staged = append(res.Staged, content)

	var preview *StagingRecord
	switch {
	case c.PreviewPath == "":
	case isFile(c.PreviewPath):
		rec, err := p.stage(ctx, c.PreviewPath)
		if err != nil {
			return res, err
		}
		res.Staged = append(res.Staged, rec)
		preview = &rec
	default:
		s.logger.Info("preview file not found, continuing without preview", "path", c.PreviewPath)
	}

	if req.ItemID == 0 {
		out, err := p.publishNew(ctx, r, c, content, preview)
		if err != nil {
			return res, err
		}
		res.ItemID = out.ItemID
		res.Created = true
		res.NeedsLegalAgreement = out.NeedsLegalAgreement
		r.item = out.ItemID
	} else {
		out, err := p.update(ctx, r, req.ItemID, c, content, preview)
		if err != nil {
			return res, err
		}
		res.NeedsLegalAgreement = out.NeedsLegalAgreement
	}

	r.to(StateCommitted)
	s.logger.Info("file published/updated on workshop", "item", res.ItemID, "created", res.Created)
	if res.NeedsLegalAgreement {
		s.logger.Warn("the workshop legal agreement must be accepted before the item becomes visible", "item", res.ItemID)
	}
	return res, nil
}

func (p *legacyPublisher) stage(ctx context.Context, localPath string) (StagingRecord, error) {
	rec, err := p.s.stager.StageFile(ctx, localPath)
	if err != nil {
		return rec, err
	}
	if err := p.s.hooks.executeAfterStage(ctx, rec); err != nil {
		return rec, fmt.Errorf("after stage hook: %w", err)
	}
	return rec, nil
}

func (p *legacyPublisher) publishNew(ctx context.Context, r *run, c ContentSpec, content StagingRecord, preview *StagingRecord) (PublishFileResult, error) {
	const op = "publish_file"
	s := p.s

	previewPath := ""
	if preview != nil {
		previewPath = preview.RemotePath
	}
	tags := dedupe(c.Tags)

	s.logger.Info("publishing to workshop", "title", c.Title, "tags", tags)
	r.to(StatePublishSubmitted)
	out, err := Await(ctx, s.corr, op, func() CallHandle {
		h := s.platform.PublishWorkshopFile(content.RemotePath, previewPath, s.app, c.Title, c.Description, VisibilityPublic, tags, FileTypeCommunity)
		if h != InvalidCallHandle {
			r.to(StateAwaitingCompletion)
		}
		return h
	}, func(comp Completion) (PublishFileResult, error) {
		pr, ok := comp.Payload.(PublishFileResult)
		if !ok {
			return pr, unexpectedPayload(op, comp)
		}
		return pr, nil
	})
	if err != nil {
		return out, err
	}
	s.logger.Info("publish completed", "item", out.ItemID, "needs_legal_agreement", out.NeedsLegalAgreement)
	if out.ItemID == 0 {
		return out, &Error{Kind: KindOperationFailed, Op: op, Code: ResultOK, Msg: "platform returned no item id"}
	}
	return out, nil
}

func (p *legacyPublisher) update(ctx context.Context, r *run, item ItemID, c ContentSpec, content StagingRecord, preview *StagingRecord) (UpdatePublishedFileResult, error) {
	const op = "update_published_file"
	s := p.s
	var zero UpdatePublishedFileResult

	r.to(StateUpdateSubmitted)
	uh := s.platform.CreatePublishedFileUpdateRequest(item)
	if uh == InvalidUpdateHandle {
		return zero, &Error{Kind: KindRemoteCallRejected, Op: op, Item: item, Err: ErrRemoteUpdateFailed, Msg: "update request not created"}
	}
	if !s.platform.UpdatePublishedFileFile(uh, content.RemotePath) {
		return zero, &Error{Kind: KindRemoteCallRejected, Op: op, Item: item, Err: ErrRemoteUpdateFailed, Msg: "file update failed"}
	}
	if preview != nil && !s.platform.UpdatePublishedFilePreviewFile(uh, preview.RemotePath) {
		return zero, &Error{Kind: KindRemoteCallRejected, Op: op, Item: item, Err: ErrRemoteUpdateFailed, Msg: "preview file update failed"}
	}

	details, err := s.ItemDetails(ctx, item)
	if err != nil {
		return zero, err
	}
	existing := details.TagList()
	for _, pair := range SimilarTags(c.Tags, existing) {
		s.logger.Warn("tag looks like an existing tag, both are kept", "new", pair.New, "existing", pair.Existing)
	}
	tags := MergeTags(c.Tags, details.Tags)
	if !s.platform.UpdatePublishedFileTags(uh, tags) {
		return zero, &Error{Kind: KindRemoteCallRejected, Op: op, Item: item, Err: ErrTagUpdateFailed, Msg: "updating tags failed"}
	}

	s.logger.Info("updating item on workshop", "item", item, "title", details.Title, "tags", tags)
	out, err := Await(ctx, s.corr, "commit_update", func() CallHandle {
		h := s.platform.CommitPublishedFileUpdate(uh)
		if h != InvalidCallHandle {
			r.to(StateAwaitingCompletion)
		}
		return h
	}, func(comp Completion) (UpdatePublishedFileResult, error) {
		ur, ok := comp.Payload.(UpdatePublishedFileResult)
		if !ok {
			return ur, unexpectedPayload(op, comp)
		}
		return ur, nil
	})
	if err != nil {
		return out, err
	}
	s.logger.Info("update completed", "item", out.ItemID, "needs_legal_agreement", out.NeedsLegalAgreement)
	return out, nil
}

func unexpectedPayload(op string, comp Completion) error {
	return &Error{Kind: KindOperationFailed, Op: op, Code: comp.Result, Msg: fmt.Sprintf("unexpected completion payload %T", comp.Payload)}
}
