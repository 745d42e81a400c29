package workshop

import (
	"context"
	"fmt"
	"os"
	"time"
)

// Variant names a publish strategy.
type Variant string

const (
	// VariantLegacy publishes a single file through remote storage.
	VariantLegacy Variant = "legacy"
	// VariantBundle updates an item from a directory through an update session.
	VariantBundle Variant = "bundle"
)

// State is a step of a publish run.
type State int

const (
	StateIdle State = iota
	StateStaging
	StatePublishSubmitted
	StateUpdateSubmitted
	StateAwaitingCompletion
	StateCommitted
	StateFailed
	StateCleanedUp
)

var stateNames = [...]string{
	StateIdle:               "idle",
	StateStaging:            "staging",
	StatePublishSubmitted:   "publish_submitted",
	StateUpdateSubmitted:    "update_submitted",
	StateAwaitingCompletion: "awaiting_completion",
	StateCommitted:          "committed",
	StateFailed:             "failed",
	StateCleanedUp:          "cleaned_up",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Request is one publish or update.
type Request struct {
	// ItemID is zero to publish a new item.
	ItemID  ItemID
	Content ContentSpec
	// Legacy selects the single-file strategy instead of the bundle one.
	Legacy bool
}

// Variant returns the strategy the request selects.
func (r Request) Variant() Variant {
	if r.Legacy {
		return VariantLegacy
	}
	return VariantBundle
}

// PublishResult describes a finished run.
type PublishResult struct {
	ItemID              ItemID
	Created             bool
	Variant             Variant
	NeedsLegalAgreement bool
	Staged              []StagingRecord
}

// Publisher is one publish strategy.
type Publisher interface {
	Variant() Variant
	Publish(ctx context.Context, req Request) (PublishResult, error)
}

// Publisher returns the strategy for v.
func (s *Session) Publisher(v Variant) (Publisher, error) {
	switch v {
	case VariantLegacy:
		return &legacyPublisher{s: s}, nil
	case VariantBundle:
		return &bundlePublisher{s: s}, nil
	default:
		return nil, &Error{Kind: KindUnsupportedOperation, Op: "publish", Msg: fmt.Sprintf("unknown variant %q", v)}
	}
}

// Publish runs req with the strategy it selects.
func (s *Session) Publish(ctx context.Context, req Request) (PublishResult, error) {
	start := time.Now()
	variant := req.Variant()

	res, err := s.publish(ctx, &req)
	res.Variant = variant

	s.metrics.IncPublish(variant, statusOf(err))
	s.metrics.ObserveOperation("publish_"+string(variant), statusOf(err), time.Since(start))
	if err != nil {
		s.logger.Error("publish failed", "variant", variant, "item", req.ItemID, "kind", KindOf(err), "error", err)
		s.hooks.executeOnError(ctx, "publish", err)
		return res, err
	}
	return res, nil
}

func (s *Session) publish(ctx context.Context, req *Request) (PublishResult, error) {
	if err := s.hooks.executeBeforePublish(ctx, req); err != nil {
		return PublishResult{ItemID: req.ItemID}, fmt.Errorf("before publish hook: %w", err)
	}
	pub, err := s.Publisher(req.Variant())
	if err != nil {
		return PublishResult{ItemID: req.ItemID}, err
	}
	res, err := pub.Publish(ctx, *req)
	if err != nil {
		return res, err
	}
	if err := s.hooks.executeAfterPublish(ctx, &res); err != nil {
		return res, fmt.Errorf("after publish hook: %w", err)
	}
	return res, nil
}

// run tracks the state of one publish.
type run struct {
	s       *Session
	ctx     context.Context
	variant Variant
	item    ItemID
	state   State
}

func (s *Session) newRun(ctx context.Context, v Variant, item ItemID) *run {
	return &run{s: s, ctx: ctx, variant: v, item: item, state: StateIdle}
}

func (r *run) to(next State) {
	prev := r.state
	r.state = next
	r.s.logger.Info("pipeline state", "variant", r.variant, "item", r.item, "from", prev, "to", next)
	r.s.hooks.executeStateChange(r.ctx, r.variant, r.item, prev, next)
}

// finish records the terminal states of a run.
func (r *run) finish(err error) {
	if err != nil {
		r.to(StateFailed)
	}
	r.to(StateCleanedUp)
}

func isFile(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.Mode().IsRegular()
}

func isDir(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}
