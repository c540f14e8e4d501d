// Package gdrive understands Google Drive URLs: it extracts file ids from
// the many shapes of sharing links and resolves the confirmation pages Drive
// serves in place of large files.
package gdrive

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/glorpus-work/gdown/pkg/errors"
)

// Hosts are the hostnames treated as Google Drive.
var Hosts = []string{"drive.google.com", "docs.google.com"}

// DownloadURLBase is the direct download endpoint for a file id.
const DownloadURLBase = "https://drive.google.com/uc?id="

var idPathPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^/file/d/(.*?)/(edit|view)$`),
	regexp.MustCompile(`^/file/u/[0-9]+/d/(.*?)/(edit|view)$`),
	regexp.MustCompile(`^/document/d/(.*?)/(edit|htmlview|view)$`),
	regexp.MustCompile(`^/document/u/[0-9]+/d/(.*?)/(edit|htmlview|view)$`),
	regexp.MustCompile(`^/presentation/d/(.*?)/(edit|htmlview|view)$`),
	regexp.MustCompile(`^/presentation/u/[0-9]+/d/(.*?)/(edit|htmlview|view)$`),
	regexp.MustCompile(`^/spreadsheets/d/(.*?)/(edit|htmlview|view)$`),
	regexp.MustCompile(`^/spreadsheets/u/[0-9]+/d/(.*?)/(edit|htmlview|view)$`),
}

// Link describes a parsed Drive URL.
type Link struct {
	// ID is the Drive file id, empty when none could be found.
	ID string
	// IsDrive reports whether the host is a Google Drive host.
	IsDrive bool
	// IsDownloadLink reports whether the URL already points at the
	// direct download endpoint.
	IsDownloadLink bool
}

// ParseURL extracts the file id from a Drive URL. Non-Drive URLs parse
// successfully with IsDrive unset; the id is then only taken from an "id"
// query parameter.
func ParseURL(raw string) (Link, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Link{}, fmt.Errorf("parse url %q: %w", raw, err)
	}

	link := Link{
		IsDrive:        isDriveHost(u.Hostname()),
		IsDownloadLink: strings.HasSuffix(u.Path, "/uc"),
	}

	if id := u.Query().Get("id"); id != "" {
		link.ID = id
		return link, nil
	}
	if !link.IsDrive {
		return link, nil
	}

	for _, re := range idPathPatterns {
		if m := re.FindStringSubmatch(u.Path); m != nil {
			link.ID = m[1]
			break
		}
	}
	return link, nil
}

// Warning returns the message shown for a Drive link that is not a direct
// download link, or "" when there is nothing to warn about.
func (l Link) Warning() string {
	if !l.IsDrive || l.IsDownloadLink {
		return ""
	}
	return fmt.Sprintf("You specified a Google Drive link that is not the correct link "+
		"to download a file. You might want to try `--fuzzy` option "+
		"or the following url: %s", DownloadURL(l.ID))
}

// DownloadURL returns the direct download URL for a file id.
func DownloadURL(id string) string {
	return DownloadURLBase + url.QueryEscape(id)
}

// Normalize rewrites any Drive link carrying a file id into the direct
// download URL. Other URLs are returned unchanged.
func Normalize(raw string) (string, error) {
	link, err := ParseURL(raw)
	if err != nil {
		return "", err
	}
	if !link.IsDrive || link.ID == "" {
		return raw, nil
	}
	return DownloadURL(link.ID), nil
}

func isDriveHost(host string) bool {
	for _, h := range Hosts {
		if strings.EqualFold(host, h) {
			return true
		}
	}
	return false
}

// ResolveSource turns a command line argument into the URL to download.
// With isID the argument is a bare file id. With fuzzy, Drive links carrying
// a file id are rewritten to the direct download URL; otherwise a Drive link
// that is not a direct link is kept and a warning is returned.
func ResolveSource(arg string, isID, fuzzy bool) (source, warning string, err error) {
	if arg == "" {
		return "", "", errors.ErrEmptySource
	}
	if isID {
		return DownloadURL(arg), "", nil
	}

	link, err := ParseURL(arg)
	if err != nil {
		return "", "", errors.Wrap(errors.ErrInvalidArgument, err.Error())
	}
	if fuzzy && link.IsDrive && link.ID != "" {
		return DownloadURL(link.ID), "", nil
	}
	return arg, link.Warning(), nil
}
