package solver

import "strings"

// Refs holds the references discovered on a quiz page. Either field may be
// empty: no document means the page HTML itself is the question source, and
// no submit target means the answer goes back to the current page URL.
type Refs struct {
	DocumentURL string
	SubmitURL   string
}

// LocateRefs scans page markup for an embedded document link (".pdf") and a
// submission endpoint link ("/submit"). The scan is a whitespace token walk,
// first match wins, and a match is cut at the first quote to strip the
// surrounding markup. Deliberately blunt: it survives malformed HTML that a
// structured parser would choke on.
func LocateRefs(html string) Refs {
	var refs Refs
	for _, tok := range strings.Fields(html) {
		if refs.DocumentURL == "" && strings.Contains(tok, ".pdf") {
			refs.DocumentURL, _, _ = strings.Cut(tok, `"`)
		}
		if refs.SubmitURL == "" && strings.Contains(tok, "/submit") {
			refs.SubmitURL, _, _ = strings.Cut(tok, `"`)
		}
		if refs.DocumentURL != "" && refs.SubmitURL != "" {
			break
		}
	}
	return refs
}
