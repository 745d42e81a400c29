package workshop

import "context"

// Hook system allows extending the publish pipeline without modifying it.
// Hooks are called at specific points of each publish run.

// Hooks defines all available pipeline hooks
type Hooks struct {
	// Pipeline hooks
	BeforePublish []BeforePublishHook
	AfterStage    []AfterStageHook
	AfterPublish  []AfterPublishHook

	// State change hooks
	OnStateChange []StateChangeHook

	// Error hooks
	OnError []ErrorHook
}

// Hook context carries information through the hook chain
type HookContext struct {
	Context   context.Context
	Metadata  map[string]interface{} // Custom metadata passed between hooks
	StopChain bool                   // Set to true to stop processing remaining hooks
}

// NewHookContext creates a new hook context
func NewHookContext(ctx context.Context) *HookContext {
	return &HookContext{
		Context:  ctx,
		Metadata: make(map[string]interface{}),
	}
}

// BeforePublishHook is called before a run starts. It may modify the request;
// an error aborts the run before anything is staged.
type BeforePublishHook func(hctx *HookContext, req *Request) error

// AfterStageHook is called after each file reaches temporary storage
type AfterStageHook func(hctx *HookContext, rec StagingRecord) error

// AfterPublishHook is called after a run commits
type AfterPublishHook func(hctx *HookContext, res *PublishResult) error

// StateChangeHook is called on every pipeline state transition
type StateChangeHook func(hctx *HookContext, variant Variant, item ItemID, from, to State)

// ErrorHook is called when a run fails
type ErrorHook func(hctx *HookContext, operation string, err error)

// Hook execution helpers

// executeBeforePublish runs all BeforePublish hooks
func (h *Hooks) executeBeforePublish(ctx context.Context, req *Request) error {
	if h == nil || len(h.BeforePublish) == 0 {
		return nil
	}

	hctx := NewHookContext(ctx)
	for _, hook := range h.BeforePublish {
		if err := hook(hctx, req); err != nil {
			return err
		}
		if hctx.StopChain {
			break
		}
	}
	return nil
}

// executeAfterStage runs all AfterStage hooks
func (h *Hooks) executeAfterStage(ctx context.Context, rec StagingRecord) error {
	if h == nil || len(h.AfterStage) == 0 {
		return nil
	}

	hctx := NewHookContext(ctx)
	for _, hook := range h.AfterStage {
		if err := hook(hctx, rec); err != nil {
			return err
		}
		if hctx.StopChain {
			break
		}
	}
	return nil
}

// executeAfterPublish runs all AfterPublish hooks
func (h *Hooks) executeAfterPublish(ctx context.Context, res *PublishResult) error {
	if h == nil || len(h.AfterPublish) == 0 {
		return nil
	}

	hctx := NewHookContext(ctx)
	for _, hook := range h.AfterPublish {
		if err := hook(hctx, res); err != nil {
			return err
		}
		if hctx.StopChain {
			break
		}
	}
	return nil
}

// executeStateChange runs all OnStateChange hooks
func (h *Hooks) executeStateChange(ctx context.Context, variant Variant, item ItemID, from, to State) {
	if h == nil || len(h.OnStateChange) == 0 {
		return
	}

	hctx := NewHookContext(ctx)
	for _, hook := range h.OnStateChange {
		hook(hctx, variant, item, from, to)
		if hctx.StopChain {
			break
		}
	}
}

// executeOnError runs all OnError hooks
func (h *Hooks) executeOnError(ctx context.Context, operation string, err error) {
	if h == nil || len(h.OnError) == 0 {
		return
	}

	hctx := NewHookContext(ctx)
	for _, hook := range h.OnError {
		hook(hctx, operation, err)
		if hctx.StopChain {
			break
		}
	}
}
