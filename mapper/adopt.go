package mapper

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"time"

	"github.com/benkert/gutwerk/domain"
	"github.com/benkert/gutwerk/util"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// Adopt creates a local project from a remote event. Adopting the same
// event twice returns the project created the first time.
func (m *Mapper) Adopt(ev *domain.Event) (*domain.Project, error) {
	iri := ev.ID.RemoteIRI
	if iri == "" {
		return nil, fmt.Errorf("Adopt: event %v is not remote", ev.ID)
	}

	err, existing := m.db.ReadProjectBySourceEvent(iri)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("Adopt: %w", err)
	}

	err, children := m.db.ReadChildEvents(ev.ID.LocalID)
	if err != nil {
		return nil, fmt.Errorf("Adopt: %w", err)
	}

	p := &domain.Project{
		Kind:           projectKindOf(ev, len(*children)),
		Title:          ev.Name,
		Description:    ev.Description,
		Duration:       ev.Duration,
		Deadline:       ev.Deadline,
		GoalAmount:     ev.GoalAmount,
		SourceEventIRI: iri,
		CreatedAt:      time.Now(),
	}

	switch p.Kind {
	case domain.ProjectDate:
		p.Slots = slotsOf(ev, *children)
	}

	if ev.ImageURL != "" {
		filename, err := m.fetchImage(ev.ImageURL)
		if err != nil {
			// Adoption proceeds without the image.
			log.Warnf("Adopt: could not fetch image %s: %v", ev.ImageURL, err)
		} else {
			p.ImagePath = filename
		}
	}

	if err := m.db.CreateProject(p); err != nil {
		return nil, fmt.Errorf("Adopt: %w", err)
	}
	if err := m.db.SetEventProject(ev.ID.LocalID, p.ID); err != nil {
		return nil, fmt.Errorf("Adopt: %w", err)
	}
	return p, nil
}

// slotsOf derives project slots from the event's children, or from the
// event's own span when it has none.
func slotsOf(ev *domain.Event, children []domain.Event) []domain.ProjectSlot {
	if len(children) == 0 {
		if ev.StartTime == nil || ev.EndTime == nil {
			return nil
		}
		return []domain.ProjectSlot{{Seq: 1, StartsAt: *ev.StartTime, EndsAt: *ev.EndTime}}
	}
	slots := make([]domain.ProjectSlot, 0, len(children))
	for _, child := range children {
		if child.StartTime == nil || child.EndTime == nil {
			continue
		}
		seq := child.SlotSeq
		if seq == 0 {
			seq = len(slots) + 1
		}
		slots = append(slots, domain.ProjectSlot{Seq: seq, StartsAt: *child.StartTime, EndsAt: *child.EndTime})
	}
	return slots
}

// fetchImage downloads the event image into the local media directory and
// returns the stored filename.
func (m *Mapper) fetchImage(imageURL string) (string, error) {
	resp, err := m.client.Get(imageURL)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	ext := path.Ext(imageURL)
	if ext == "" || len(ext) > 5 {
		ext = ".img"
	}
	filename := uuid.New().String() + ext

	f, err := os.Create(util.ResolveFilePathWithSubdir("media/images", filename))
	if err != nil {
		return "", err
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		return "", err
	}
	return filename, nil
}
