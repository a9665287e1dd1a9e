package domain

import "time"

// Placeholder values used when a record lacks a field the documents need.
const (
	UnknownSource = "Неизвестно"
	UntitledEntry = "Без заголовка"
	UnknownDate   = "Неизвестная дата"
)

// Digest is the rendered view of a set of enriched records.
// Groups are sorted by source; entries keep their original order.
type Digest struct {
	// CreatedAt is stamped into the content document.
	CreatedAt time.Time

	// Groups holds one group per source file.
	Groups []DigestGroup
}

// DigestGroup holds the entries of a single source file.
type DigestGroup struct {
	// Source is the originating file name.
	Source string

	// Entries are in source row order.
	Entries []DigestEntry
}

// DigestEntry is one record prepared for rendering.
type DigestEntry struct {
	// Title is the generated title or a placeholder.
	Title string

	// Date is the formatted date, or the original string if it did not parse.
	Date string

	// Body is the raw post text; the document writer reformats it.
	Body string

	// Link is an optional external link.
	Link string
}

// Total returns the number of entries across all groups.
func (d Digest) Total() int {
	n := 0
	for _, g := range d.Groups {
		n += len(g.Entries)
	}
	return n
}
