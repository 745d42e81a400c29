package emulator

import (
	"fmt"
	"path"
	"strings"

	"github.com/tendant/simple-workshop/pkg/workshop"
)

// Object key layout:
//
//	remote/<app>/<user>/<name>                     temporary storage
//	items/<app>/<item>/r<revision>/<name>          single-file content and preview
//	items/<app>/<item>/r<revision>/content/<path>  bundle content

// RemotePrefix returns the temporary storage prefix of user within app.
func RemotePrefix(app workshop.AppID, user string) string {
	return fmt.Sprintf("remote/%s/%s/", app, sanitizeSegment(user))
}

// RemoteKey returns the key of a temporary storage file.
func RemoteKey(app workshop.AppID, user, name string) string {
	return RemotePrefix(app, user) + workshop.NormalizeRemotePath(name)
}

// ItemPrefix returns the prefix holding every revision of an item.
func ItemPrefix(app workshop.AppID, item workshop.ItemID) string {
	return fmt.Sprintf("items/%s/%s/", app, item)
}

// RevisionPrefix returns the prefix of one revision.
func RevisionPrefix(app workshop.AppID, item workshop.ItemID, revision int) string {
	return fmt.Sprintf("%sr%d/", ItemPrefix(app, item), revision)
}

// RevisionFileKey returns the key of a single file within a revision.
func RevisionFileKey(app workshop.AppID, item workshop.ItemID, revision int, name string) string {
	return RevisionPrefix(app, item, revision) + sanitizeSegment(path.Base(name))
}

// BundlePrefix returns the bundle content prefix of a revision.
func BundlePrefix(app workshop.AppID, item workshop.ItemID, revision int) string {
	return RevisionPrefix(app, item, revision) + "content/"
}

func sanitizeSegment(s string) string {
	s = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, s)
	if s == "" || s == "." || s == ".." {
		return "_"
	}
	return s
}

func joinTags(tags []string) string {
	return strings.Join(tags, ",")
}
