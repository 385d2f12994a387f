package scraper

import (
	"sync"
	"time"
)

type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseWarmup    Phase = "warmup"
	PhasePaginate  Phase = "paginating"
	PhaseScrape    Phase = "scraping"
	PhaseWrite     Phase = "writing"
	PhaseCompleted Phase = "completed"
	PhaseFailed    Phase = "failed"
)

// Snapshot is a point-in-time view of a running scrape.
type Snapshot struct {
	RunID      string    `json:"run_id,omitempty"`
	Phase      Phase     `json:"phase"`
	Pages      int       `json:"pages"`
	Links      int       `json:"links"`
	Scraped    int       `json:"scraped"`
	Failed     int       `json:"failed"`
	OutputFile string    `json:"output_file,omitempty"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Progress is safe for concurrent use. A nil *Progress ignores updates.
type Progress struct {
	mu   sync.RWMutex
	snap Snapshot
}

func NewProgress() *Progress {
	return &Progress{snap: Snapshot{Phase: PhaseIdle, UpdatedAt: time.Now()}}
}

func (p *Progress) Start(runID string, startedAt time.Time) {
	p.update(func(s *Snapshot) {
		*s = Snapshot{RunID: runID, Phase: PhaseWarmup, StartedAt: startedAt}
	})
}

func (p *Progress) SetPhase(phase Phase) {
	p.update(func(s *Snapshot) { s.Phase = phase })
}

func (p *Progress) PageDone(links int) {
	p.update(func(s *Snapshot) {
		s.Pages++
		s.Links += links
	})
}

func (p *Progress) ProductDone(ok bool) {
	p.update(func(s *Snapshot) {
		if ok {
			s.Scraped++
		} else {
			s.Failed++
		}
	})
}

func (p *Progress) Complete(outputFile string) {
	p.update(func(s *Snapshot) {
		s.Phase = PhaseCompleted
		s.OutputFile = outputFile
	})
}

func (p *Progress) Fail(err error) {
	p.update(func(s *Snapshot) {
		s.Phase = PhaseFailed
		s.Error = err.Error()
	})
}

func (p *Progress) Snapshot() Snapshot {
	if p == nil {
		return Snapshot{Phase: PhaseIdle}
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snap
}

func (p *Progress) update(fn func(*Snapshot)) {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	fn(&p.snap)
	p.snap.UpdatedAt = time.Now()
}
