package trace

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"

	"github.com/wricardo/mcp-training/arkshepherds/game/engine"
)

// Version is the trace format version written in every header
const Version = 1

var (
	ErrNoHeader        = errors.New("trace has no header")
	ErrVersionMismatch = errors.New("unsupported trace version")
)

// Line kinds
const (
	KindHeader = "header"
	KindTurn   = "turn"
	KindResult = "result"
)

// Header opens a trace. It embeds the level and the drawn paths so a trace
// can be replayed without the level directory.
type Header struct {
	Version   int                                  `json:"version"`
	RunID     string                               `json:"run_id"`
	LevelID   string                               `json:"level_id"`
	CreatedAt time.Time                            `json:"created_at"`
	Level     *engine.LevelConfig                  `json:"level"`
	Paths     map[engine.AgentID][]engine.Position `json:"paths"`
}

// Result closes a trace
type Result struct {
	Outcome engine.Outcome `json:"outcome"`
	Turns   int            `json:"turns"`
	Ticks   int            `json:"ticks"`
	Events  int            `json:"events"`
}

// line is one JSONL entry
type line struct {
	Kind   string             `json:"kind"`
	Header *Header            `json:"header,omitempty"`
	Turn   *engine.TurnRecord `json:"turn,omitempty"`
	Result *Result            `json:"result,omitempty"`
}

// Trace is a fully read trace file
type Trace struct {
	Header Header
	Turns  []engine.TurnRecord
	Result *Result
}

// NewHeader starts a header with a fresh run ID
func NewHeader(levelID string, level *engine.LevelConfig, paths map[engine.AgentID][]engine.Position) Header {
	return Header{
		Version:   Version,
		RunID:     uuid.NewString(),
		LevelID:   levelID,
		CreatedAt: time.Now().UTC(),
		Level:     level,
		Paths:     paths,
	}
}

// Writer writes zstd-compressed JSONL trace lines
type Writer struct {
	enc    *zstd.Encoder
	w      *bufio.Writer
	closer io.Closer
}

// NewWriter wraps dst. Closing the writer does not close dst.
func NewWriter(dst io.Writer) (*Writer, error) {
	enc, err := zstd.NewWriter(dst, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	return &Writer{enc: enc, w: bufio.NewWriterSize(enc, 64*1024)}, nil
}

// Create opens path for writing, truncating any existing file
func Create(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace file: %w", err)
	}
	w, err := NewWriter(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	w.closer = f
	return w, nil
}

func (w *Writer) WriteHeader(h Header) error           { return w.write(line{Kind: KindHeader, Header: &h}) }
func (w *Writer) WriteTurn(t engine.TurnRecord) error { return w.write(line{Kind: KindTurn, Turn: &t}) }
func (w *Writer) WriteResult(r Result) error          { return w.write(line{Kind: KindResult, Result: &r}) }

func (w *Writer) write(l line) error {
	b, err := json.Marshal(l)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	return w.w.WriteByte('\n')
}

// Close flushes buffered lines and finishes the zstd frame
func (w *Writer) Close() error {
	flushErr := w.w.Flush()
	encErr := w.enc.Close()
	var closeErr error
	if w.closer != nil {
		closeErr = w.closer.Close()
	}
	return errors.Join(flushErr, encErr, closeErr)
}

// Read decodes a whole trace from src
func Read(src io.Reader) (*Trace, error) {
	dec, err := zstd.NewReader(src)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 64*1024), 8*1024*1024)

	var t Trace
	seenHeader := false
	n := 0
	for sc.Scan() {
		n++
		var l line
		if err := json.Unmarshal(sc.Bytes(), &l); err != nil {
			return nil, fmt.Errorf("line %d: unmarshal: %w", n, err)
		}
		switch l.Kind {
		case KindHeader:
			if l.Header == nil {
				return nil, fmt.Errorf("line %d: empty header", n)
			}
			if l.Header.Version != Version {
				return nil, fmt.Errorf("%w: %d", ErrVersionMismatch, l.Header.Version)
			}
			t.Header = *l.Header
			seenHeader = true
		case KindTurn:
			if !seenHeader {
				return nil, ErrNoHeader
			}
			if l.Turn != nil {
				t.Turns = append(t.Turns, *l.Turn)
			}
		case KindResult:
			t.Result = l.Result
		default:
			return nil, fmt.Errorf("line %d: unknown kind %q", n, l.Kind)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read trace: %w", err)
	}
	if !seenHeader {
		return nil, ErrNoHeader
	}
	return &t, nil
}

// Open reads the trace file at path
func Open(path string) (*Trace, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace: %w", err)
	}
	defer f.Close()
	return Read(f)
}
