package gdrive

import (
	"bytes"
	"io"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"github.com/glorpus-work/gdown/pkg/errors"
)

// PublicLinkHint is appended when no download URL could be found on a
// confirmation page.
const PublicLinkHint = "You may need to change the permission to " +
	"'Anyone with the link', or have had many accesses."

var downloadURLPattern = regexp.MustCompile(`"downloadUrl":"([^"]+)`)

// ResolveConfirmation finds the real download URL on a Drive confirmation
// page. Relative links are resolved against base, the URL the page was
// served from. A Drive error message on the page is returned as an error
// wrapping ErrConfirmationFailed.
func ResolveConfirmation(base *url.URL, page io.Reader) (string, error) {
	body, err := io.ReadAll(page)
	if err != nil {
		return "", errors.Wrap(errors.ErrIO, err.Error())
	}

	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrapf(errors.ErrConfirmationFailed, "parse page: %v", err)
	}

	if href := findExportHref(doc); href != "" {
		return resolve(base, href)
	}
	if form := findByID(doc, "download-form"); form != nil {
		return formURL(base, form)
	}
	if m := downloadURLPattern.FindSubmatch(body); m != nil {
		raw := strings.NewReplacer(`\u003d`, "=", `\u0026`, "&").Replace(string(m[1]))
		return raw, nil
	}
	if msg := findErrorCaption(doc); msg != "" {
		return "", errors.Wrap(errors.ErrConfirmationFailed, msg)
	}

	return "", errors.Wrap(errors.ErrPublicLinkMissing, PublicLinkHint)
}

func findExportHref(n *html.Node) string {
	var found string
	walk(n, func(n *html.Node) bool {
		if n.Type != html.ElementNode || n.Data != "a" {
			return true
		}
		if href := attr(n, "href"); strings.HasPrefix(href, "/uc?export=download") {
			found = href
			return false
		}
		return true
	})
	return found
}

func findByID(n *html.Node, id string) *html.Node {
	var found *html.Node
	walk(n, func(n *html.Node) bool {
		if n.Type == html.ElementNode && attr(n, "id") == id {
			found = n
			return false
		}
		return true
	})
	return found
}

func findErrorCaption(n *html.Node) string {
	var msg string
	walk(n, func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.Data == "p" && hasClass(n, "uc-error-subcaption") {
			msg = strings.TrimSpace(textContent(n))
			return false
		}
		return true
	})
	return msg
}

// formURL builds the form action URL with all hidden inputs added to its query.
func formURL(base *url.URL, form *html.Node) (string, error) {
	action, err := url.Parse(attr(form, "action"))
	if err != nil {
		return "", errors.Wrapf(errors.ErrConfirmationFailed, "form action: %v", err)
	}
	if base != nil {
		action = base.ResolveReference(action)
	}

	query := action.Query()
	walk(form, func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.Data == "input" && attr(n, "type") == "hidden" {
			if name := attr(n, "name"); name != "" {
				query.Set(name, attr(n, "value"))
			}
		}
		return true
	})
	action.RawQuery = query.Encode()
	return action.String(), nil
}

func resolve(base *url.URL, href string) (string, error) {
	ref, err := url.Parse(href)
	if err != nil {
		return "", errors.Wrapf(errors.ErrConfirmationFailed, "link %q: %v", href, err)
	}
	if base == nil {
		return ref.String(), nil
	}
	return base.ResolveReference(ref).String(), nil
}

// walk visits nodes depth-first until visit returns false.
func walk(n *html.Node, visit func(*html.Node) bool) bool {
	if !visit(n) {
		return false
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if !walk(c, visit) {
			return false
		}
	}
	return true
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func textContent(n *html.Node) string {
	var b strings.Builder
	walk(n, func(n *html.Node) bool {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		return true
	})
	return b.String()
}
