package apod

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"apodwall/internal/domain"
)

// pageDateRe matches the "2024 October 19" line under the page heading.
var pageDateRe = regexp.MustCompile(`\b(\d{4})\s+([A-Z][a-z]+)\s+(\d{1,2})\b`)

// parsePage extracts a record from an APOD archive page.
// date overrides the date printed on the page when non-empty.
func parsePage(src string, base *url.URL, date string) (domain.Record, error) {
	doc, err := html.Parse(strings.NewReader(src))
	if err != nil {
		return domain.Record{}, fmt.Errorf("%w: %v", domain.ErrMalformed, err)
	}

	centers := findAll(doc, atom.Center)
	rec := domain.Record{Date: date}

	if rec.Date == "" && len(centers) > 0 {
		rec.Date = pageDate(textContent(centers[0]))
	}

	if img := findFirst(doc, atom.Img); img != nil {
		rec.MediaType = domain.MediaImage
		rec.URL = resolve(base, attr(img, "src"))
		if p := img.Parent; p != nil && p.DataAtom == atom.A {
			rec.HDURL = resolve(base, attr(p, "href"))
		}
	} else if frame := findFirst(doc, atom.Iframe); frame != nil {
		rec.MediaType = domain.MediaVideo
		rec.URL = resolve(base, attr(frame, "src"))
	}

	if len(centers) > 1 {
		if b := findFirst(centers[1], atom.B); b != nil {
			rec.Title = collapseSpace(textContent(b))
		}
		credit := collapseSpace(textContent(centers[1]))
		if i := strings.Index(credit, "Copyright:"); i >= 0 {
			rec.Copyright = strings.TrimSpace(credit[i+len("Copyright:"):])
		}
	}
	if rec.Title == "" {
		if t := findFirst(doc, atom.Title); t != nil {
			title := collapseSpace(textContent(t))
			if _, after, ok := strings.Cut(title, " - "); ok {
				title = strings.TrimSpace(after)
			}
			rec.Title = title
		}
	}

	for _, b := range findAll(doc, atom.B) {
		if collapseSpace(textContent(b)) != "Explanation:" || b.Parent == nil {
			continue
		}
		text := collapseSpace(textContent(b.Parent))
		rec.Explanation = strings.TrimSpace(strings.TrimPrefix(text, "Explanation:"))
		break
	}

	if err := rec.Validate(); err != nil {
		return domain.Record{}, err
	}
	return rec, nil
}

func pageDate(s string) string {
	m := pageDateRe.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	t, err := time.Parse("2006 January 2", fmt.Sprintf("%s %s %s", m[1], m[2], m[3]))
	if err != nil {
		return ""
	}
	return t.Format(domain.DateLayout)
}

func findFirst(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, a); found != nil {
			return found
		}
	}
	return nil
}

func findAll(n *html.Node, a atom.Atom) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == a {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

func resolve(base *url.URL, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	if base == nil {
		return u.String()
	}
	return base.ResolveReference(u).String()
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
