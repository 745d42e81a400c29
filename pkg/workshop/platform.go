package workshop

import "context"

// Completion is one raw notification delivered by the platform's event queue
// for a previously issued call.
type Completion struct {
	Handle    CallHandle
	Result    Result
	IOFailure bool
	// Payload holds the call-specific result struct, one of the *Result
	// types below.
	Payload any
}

// PublishFileResult is delivered for PublishWorkshopFile.
type PublishFileResult struct {
	ItemID              ItemID
	NeedsLegalAgreement bool
}

// UpdatePublishedFileResult is delivered for CommitPublishedFileUpdate.
type UpdatePublishedFileResult struct {
	ItemID              ItemID
	NeedsLegalAgreement bool
}

// FileWriteResult is delivered for FileWriteAsync.
type FileWriteResult struct {
	Name string
}

// QueryCompleted is delivered for SendQuery.
type QueryCompleted struct {
	Query   QueryHandle
	Results int
}

// EnumerateResult is delivered for EnumerateUserSharedWorkshopFiles.
type EnumerateResult struct {
	Items        []ItemID
	TotalResults int
}

// DeletePublishedFileResult is delivered for DeletePublishedFile.
type DeletePublishedFileResult struct {
	ItemID ItemID
}

// SubmitItemUpdateResult is delivered for SubmitItemUpdate.
type SubmitItemUpdateResult struct {
	ItemID              ItemID
	NeedsLegalAgreement bool
}

// DownloadItemResult is delivered for DownloadItem.
type DownloadItemResult struct {
	ItemID     ItemID
	InstallDir string
}

// Lifecycle brackets a platform session.
type Lifecycle interface {
	// Init connects the client for app. It must be called before any other method.
	Init(ctx context.Context, app AppID) error
	// Shutdown releases the connection. Pending completions are dropped.
	Shutdown()
	// RestartAppIfNecessary reports whether the process should relaunch
	// through the platform client.
	RestartAppIfNecessary(app AppID) bool
	AppID() AppID
	UserID() string
}

// EventQueue is the callback-based completion model.
type EventQueue interface {
	// RunCallbacks dispatches every queued completion to its registered
	// handler. Completions are never delivered outside this call.
	RunCallbacks()
	// SetCallResult registers fn for the completion of h. The returned cancel
	// releases the registration.
	SetCallResult(h CallHandle, fn func(Completion)) (cancel func())
}

// RemoteStorage is the per-user temporary cloud storage.
type RemoteStorage interface {
	FileExists(name string) bool
	FileDelete(name string) bool
	FileWriteAsync(name string, data []byte) CallHandle
	FileCount() int
	// FileNameAndSize returns the entry at index. Indices are compacted
	// after each delete.
	FileNameAndSize(index int) (string, int64)
}

// Publishing is the single-file publish and update surface.
type Publishing interface {
	PublishWorkshopFile(file, preview string, app AppID, title, description string, visibility Visibility, tags []string, fileType FileType) CallHandle
	CreatePublishedFileUpdateRequest(item ItemID) UpdateHandle
	UpdatePublishedFileFile(h UpdateHandle, file string) bool
	UpdatePublishedFilePreviewFile(h UpdateHandle, preview string) bool
	UpdatePublishedFileTags(h UpdateHandle, tags []string) bool
	CommitPublishedFileUpdate(h UpdateHandle) CallHandle
	DeletePublishedFile(item ItemID) CallHandle
	EnumerateUserSharedWorkshopFiles(start int) CallHandle
}

// UGC is the item query and directory bundle surface.
type UGC interface {
	CreateQueryItemDetails(items []ItemID) QueryHandle
	SendQuery(q QueryHandle) CallHandle
	QueryResult(q QueryHandle, index int) (ItemDetails, bool)
	ReleaseQuery(q QueryHandle) bool
	StartItemUpdate(app AppID, item ItemID) UpdateHandle
	SetItemContent(h UpdateHandle, dir string) bool
	SubmitItemUpdate(h UpdateHandle, changeNotes string) CallHandle
	ReleaseItemUpdate(h UpdateHandle)
	DownloadItem(item ItemID, installDir string) CallHandle
}

// Platform is the whole capability surface a Session consumes.
type Platform interface {
	Lifecycle
	EventQueue
	RemoteStorage
	Publishing
	UGC
}
