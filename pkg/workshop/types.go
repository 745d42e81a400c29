package workshop

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ItemID is the platform-assigned identifier of a published item. Zero means
// the item has not been published yet.
type ItemID uint64

// String renders the id in decimal.
func (id ItemID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// ParseItemID parses a decimal item id.
func ParseItemID(s string) (ItemID, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid item id %q: %w", s, err)
	}
	return ItemID(v), nil
}

// AppID scopes an operation to one application's workshop.
type AppID uint32

// String renders the id in decimal.
func (id AppID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// ParseAppID parses a decimal application id.
func ParseAppID(s string) (AppID, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid app id %q: %w", s, err)
	}
	return AppID(v), nil
}

// AppFlightSim is the pre-registered flight-simulation application. Any other
// value is accepted as well.
const AppFlightSim AppID = 107410

// KnownApps lists the pre-registered applications by name.
var KnownApps = map[string]AppID{
	"Arma3": AppFlightSim,
}

// CallHandle identifies one in-flight asynchronous platform call.
type CallHandle uint64

// InvalidCallHandle is returned by the platform when it refuses to issue a call.
const InvalidCallHandle CallHandle = 0

// UpdateHandle identifies a pending item update request or update session.
type UpdateHandle uint64

// InvalidUpdateHandle is returned when an update could not be started.
const InvalidUpdateHandle UpdateHandle = 0

// QueryHandle identifies a prepared item details query.
type QueryHandle uint64

// InvalidQueryHandle is returned when a query could not be created.
const InvalidQueryHandle QueryHandle = 0

// Result is the platform's result code carried by every completion.
type Result int

// Result codes reported by the platform.
const (
	ResultNone          Result = 0
	ResultOK            Result = 1
	ResultFail          Result = 2
	ResultNoConnection  Result = 3
	ResultInvalidParam  Result = 8
	ResultFileNotFound  Result = 9
	ResultBusy          Result = 10
	ResultAccessDenied  Result = 15
	ResultTimeout       Result = 16
	ResultLimitExceeded Result = 25
)

var resultNames = map[Result]string{
	ResultNone:          "None",
	ResultOK:            "OK",
	ResultFail:          "Fail",
	ResultNoConnection:  "NoConnection",
	ResultInvalidParam:  "InvalidParam",
	ResultFileNotFound:  "FileNotFound",
	ResultBusy:          "Busy",
	ResultAccessDenied:  "AccessDenied",
	ResultTimeout:       "Timeout",
	ResultLimitExceeded: "LimitExceeded",
}

func (r Result) String() string {
	if name, ok := resultNames[r]; ok {
		return name
	}
	return "Result(" + strconv.Itoa(int(r)) + ")"
}

// Visibility controls who can see a published item.
type Visibility int

const (
	VisibilityPublic Visibility = iota
	VisibilityFriendsOnly
	VisibilityPrivate
)

// FileType classifies a published item.
type FileType int

const (
	FileTypeCommunity FileType = iota
	FileTypeMicrotransaction
)

// ContentSpec describes what to publish.
type ContentSpec struct {
	// ContentPath is a single file for the legacy variant and a directory for
	// the bundle variant.
	ContentPath string `json:"content_path" yaml:"content_path"`
	// PreviewPath is optional. A missing preview file is not an error.
	PreviewPath string `json:"preview_path,omitempty" yaml:"preview_path,omitempty"`
	// Title and Description are required only for a first-time publish.
	Title       string   `json:"title,omitempty" yaml:"title,omitempty"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Tags        []string `json:"tags,omitempty" yaml:"tags,omitempty"`
	// ChangeNotes is used only by the bundle variant.
	ChangeNotes string `json:"change_notes,omitempty" yaml:"change_notes,omitempty"`
}

// ItemDetails is a read-only snapshot of a remote item's metadata.
type ItemDetails struct {
	ItemID      ItemID `json:"item_id"`
	AppID       AppID  `json:"app_id"`
	Result      Result `json:"result"`
	Owner       string `json:"owner"`
	Title       string `json:"title"`
	Description string `json:"description"`
	// Tags is the comma-joined tag string as returned by the platform.
	Tags        string     `json:"tags"`
	Visibility  Visibility `json:"visibility"`
	FileType    FileType   `json:"file_type"`
	FileName    string     `json:"file_name,omitempty"`
	FileSize    int64      `json:"file_size"`
	Revision    int        `json:"revision"`
	Digest      string     `json:"digest,omitempty"`
	ChangeNotes string     `json:"change_notes,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// TagList splits the comma-joined tag string.
func (d ItemDetails) TagList() []string {
	return SplitTags(d.Tags)
}

// StagingRecord maps a local file to its temporary remote name.
type StagingRecord struct {
	LocalPath  string `json:"local_path"`
	RemotePath string `json:"remote_path"`
	Size       int64  `json:"size"`
}

// RemoteFile is one entry of the platform's temporary cloud storage.
type RemoteFile struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}
