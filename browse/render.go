package browse

import (
	"fmt"
	"strings"
	"time"
)

// DetailCard is the structured single-entry view handed to the interaction
// surface for rendering.
type DetailCard struct {
	RecordID   int64
	Name       string
	FileName   string
	Title      string
	PublicURL  string
	CreatedAt  time.Time
	Page       int
	TotalPages int
	Confirming bool
}

// RenderListView produces the compact text summary for the current page.
func (s *Session) RenderListView(actor string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkActor(actor); err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d uploads (page %d/%d)\n", len(s.entries), s.page+1, s.totalPages())

	start := s.page * s.pageSize()
	end := start + s.pageSize()
	if s.mode == ModeDetail {
		// Degenerate but valid: a list render of a detail-mode session shows
		// just the current entry.
		end = start + 1
	}
	if end > len(s.entries) {
		end = len(s.entries)
	}

	for i := start; i < end; i++ {
		entry := &s.entries[i]
		fmt.Fprintf(&b, "%d. %s - %s (%s)\n",
			i+1,
			entry.FileName(),
			entry.DisplayName(),
			entry.CreatedAt.Format("2006-01-02 15:04"),
		)
	}

	if s.pendingDelete != "" {
		fmt.Fprintf(&b, "delete %q? confirm or cancel\n", s.pendingDelete)
	}

	return b.String(), nil
}

// RenderDetailView produces the structured card for the currently-viewed
// entry.
func (s *Session) RenderDetailView(actor string) (*DetailCard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkActor(actor); err != nil {
		return nil, err
	}

	idx := s.page * s.pageSize()
	if s.mode == ModeList {
		// First entry of the visible page.
		idx = s.page * s.listPageSize
	}
	if idx >= len(s.entries) {
		idx = len(s.entries) - 1
	}

	entry := &s.entries[idx]

	return &DetailCard{
		RecordID:   entry.ID,
		Name:       entry.Name,
		FileName:   entry.FileName(),
		Title:      entry.DisplayName(),
		PublicURL:  s.objects.PublicURL(entry.ObjectKey),
		CreatedAt:  entry.CreatedAt,
		Page:       idx + 1,
		TotalPages: len(s.entries),
		Confirming: s.pendingDelete != "",
	}, nil
}
