package log

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"islandlimits.dev/internal/protocol"
)

// JSONLZstdWriter appends JSON lines to one zstd file per UTC hour.
type JSONLZstdWriter struct {
	baseDir string
	prefix  string
	now     func() time.Time

	mu      sync.Mutex
	curHour string
	f       *os.File
	enc     *zstd.Encoder
	w       *bufio.Writer
}

func NewJSONLZstdWriter(baseDir, prefix string) *JSONLZstdWriter {
	return &JSONLZstdWriter{
		baseDir: baseDir,
		prefix:  prefix,
		now:     time.Now,
	}
}

func (w *JSONLZstdWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

func (w *JSONLZstdWriter) Write(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	hour := w.now().UTC().Format("2006-01-02-15")
	if hour != w.curHour {
		if err := w.rotateLocked(hour); err != nil {
			return err
		}
	}

	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	if err := w.w.Flush(); err != nil {
		return err
	}
	// End the zstd block so readers see the line before the hour's frame closes.
	return w.enc.Flush()
}

func (w *JSONLZstdWriter) rotateLocked(hour string) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	dir := filepath.Dir(w.pathForHour(hour))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(w.pathForHour(hour), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f = f
	w.enc = enc
	w.w = bufio.NewWriterSize(enc, 128*1024)
	w.curHour = hour
	return nil
}

func (w *JSONLZstdWriter) closeLocked() error {
	var err1 error
	if w.w != nil {
		_ = w.w.Flush()
	}
	if w.enc != nil {
		err1 = w.enc.Close()
		w.enc = nil
	}
	if w.f != nil {
		_ = w.f.Close()
		w.f = nil
	}
	w.w = nil
	return err1
}

func (w *JSONLZstdWriter) pathForHour(hour string) string {
	return filepath.Join(w.baseDir, fmt.Sprintf("%s-%s.jsonl.zst", w.prefix, hour))
}

// ReportEntry records one limits panel served to a player.
type ReportEntry struct {
	Time      string               `json:"time"`
	Requester string               `json:"requester"`
	Panel     protocol.LimitsPanel `json:"panel"`
}

// ReportLogger writes served panels as hourly JSONL files (compressed).
type ReportLogger struct{ w *JSONLZstdWriter }

func NewReportLogger(worldDir string) *ReportLogger {
	return &ReportLogger{w: NewJSONLZstdWriter(filepath.Join(worldDir, "reports"), "reports")}
}

func (l *ReportLogger) WriteReport(requester string, p protocol.LimitsPanel) error {
	return l.w.Write(ReportEntry{
		Time:      l.w.now().UTC().Format(time.RFC3339Nano),
		Requester: requester,
		Panel:     p,
	})
}

func (l *ReportLogger) Close() error { return l.w.Close() }

// WorldReports routes each panel to the report log of its world, opening
// <dataDir>/worlds/<world>/reports on first use.
type WorldReports struct {
	dataDir string

	mu      sync.Mutex
	byWorld map[string]*ReportLogger
}

func NewWorldReports(dataDir string) *WorldReports {
	return &WorldReports{dataDir: dataDir, byWorld: map[string]*ReportLogger{}}
}

func (r *WorldReports) WriteReport(requester string, p protocol.LimitsPanel) error {
	if p.World == "" {
		return fmt.Errorf("report without world")
	}
	r.mu.Lock()
	l, ok := r.byWorld[p.World]
	if !ok {
		l = NewReportLogger(filepath.Join(r.dataDir, "worlds", p.World))
		r.byWorld[p.World] = l
	}
	r.mu.Unlock()
	return l.WriteReport(requester, p)
}

func (r *WorldReports) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var first error
	for w, l := range r.byWorld {
		if err := l.Close(); err != nil && first == nil {
			first = err
		}
		delete(r.byWorld, w)
	}
	return first
}

// ReadReports returns every report logged under worldDir in write order.
func ReadReports(worldDir string) ([]ReportEntry, error) {
	dir := filepath.Join(worldDir, "reports")
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(ents))
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, "reports-") && strings.HasSuffix(name, ".jsonl.zst") {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	var out []ReportEntry
	for _, name := range names {
		recs, err := readReportFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		out = append(out, recs...)
	}
	return out, nil
}

func readReportFile(path string) ([]ReportEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	var out []ReportEntry
	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 64*1024), 8*1024*1024)
	for sc.Scan() {
		var e ReportEntry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			return nil, fmt.Errorf("unmarshal: %w", err)
		}
		out = append(out, e)
	}
	// The current hour's frame stays open while the server runs.
	if err := sc.Err(); err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return out, err
	}
	return out, nil
}
