package metrics

import (
	"encoding/json"
	"os"
	"sync"
	"time"
)

// timingEvent is one JSON line of the timing file. Offsets are milliseconds
// since the recorder was created.
type timingEvent struct {
	Stage      string  `json:"stage"`
	Kind       string  `json:"kind"` // "stage" or "file"
	File       string  `json:"file,omitempty"`
	Status     string  `json:"status"`
	OffsetMS   float64 `json:"offset_ms"`
	DurationMS float64 `json:"duration_ms"`
}

// timingLog appends timing events to a file. The zero path disables it.
type timingLog struct {
	origin time.Time

	mu  sync.Mutex
	f   *os.File
	enc *json.Encoder
	err error // first create or write error
}

func openTimingLog(origin time.Time, path string) *timingLog {
	tl := &timingLog{origin: origin}
	if path == "" {
		return tl
	}
	f, err := os.Create(path)
	if err != nil {
		tl.err = err
		return tl
	}
	tl.f = f
	tl.enc = json.NewEncoder(f)
	return tl
}

func (tl *timingLog) add(ev timingEvent, start time.Time, d time.Duration) {
	if tl == nil {
		return
	}
	tl.mu.Lock()
	defer tl.mu.Unlock()
	if tl.enc == nil {
		return
	}
	ev.OffsetMS = millis(start.Sub(tl.origin))
	ev.DurationMS = millis(d)
	if err := tl.enc.Encode(ev); err != nil && tl.err == nil {
		tl.err = err
	}
}

// close releases the file and returns the first error seen over its life.
func (tl *timingLog) close() error {
	if tl == nil {
		return nil
	}
	tl.mu.Lock()
	defer tl.mu.Unlock()
	err := tl.err
	if tl.f != nil {
		if cerr := tl.f.Close(); cerr != nil && err == nil {
			err = cerr
		}
		tl.f, tl.enc = nil, nil
	}
	return err
}

func millis(d time.Duration) float64 {
	return float64(d.Nanoseconds()) / 1e6
}
