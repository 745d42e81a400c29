package emulator

import "github.com/tendant/simple-workshop/pkg/workshop"

// Call names one platform entry point for fault injection and the call log.
type Call string

const (
	CallInit                Call = "Init"
	CallShutdown            Call = "Shutdown"
	CallFileExists          Call = "FileExists"
	CallFileDelete          Call = "FileDelete"
	CallFileWriteAsync      Call = "FileWriteAsync"
	CallFileCount           Call = "FileCount"
	CallFileNameAndSize     Call = "FileNameAndSize"
	CallPublishWorkshopFile Call = "PublishWorkshopFile"
	CallCreateUpdateRequest Call = "CreatePublishedFileUpdateRequest"
	CallUpdateFile          Call = "UpdatePublishedFileFile"
	CallUpdatePreviewFile   Call = "UpdatePublishedFilePreviewFile"
	CallUpdateTags          Call = "UpdatePublishedFileTags"
	CallCommitUpdate        Call = "CommitPublishedFileUpdate"
	CallDeletePublishedFile Call = "DeletePublishedFile"
	CallEnumerateUserFiles  Call = "EnumerateUserSharedWorkshopFiles"
	CallCreateQuery         Call = "CreateQueryItemDetails"
	CallSendQuery           Call = "SendQuery"
	CallQueryResult         Call = "QueryResult"
	CallReleaseQuery        Call = "ReleaseQuery"
	CallStartItemUpdate     Call = "StartItemUpdate"
	CallSetItemContent      Call = "SetItemContent"
	CallSubmitItemUpdate    Call = "SubmitItemUpdate"
	CallReleaseItemUpdate   Call = "ReleaseItemUpdate"
	CallDownloadItem        Call = "DownloadItem"
	CallRestartIfNecessary  Call = "RestartAppIfNecessary"
)

// Fault alters how the emulator answers a call.
type Fault struct {
	// Result replaces the completion's result code.
	Result workshop.Result
	// IOFailure sets the completion's transport failure flag.
	IOFailure bool
	// Reject makes the call fail synchronously: an invalid handle, false,
	// or an error from Init.
	Reject bool
	// Drop discards the completion so it never arrives.
	Drop bool
	// Duplicate delivers the completion twice.
	Duplicate bool
}

// fails reports whether the fault replaces the call's work with a failure.
func (f Fault) fails() bool {
	return f.IOFailure || (f.Result != workshop.ResultNone && f.Result != workshop.ResultOK)
}
