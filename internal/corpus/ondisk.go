package corpus

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/coverfuzz/kernel/internal/kerr"
	"github.com/klauspost/compress/zstd"
)

// sidecarRecord is the on-disk metadata shape for one testcase, mirroring
// the teacher's CorpusEntry JSON sidecar in coverage.Corpus.saveEntry.
type sidecarRecord struct {
	ID         Id             `json:"id"`
	Compressed bool           `json:"compressed"`
	ExecTime   *int64         `json:"exec_time_ns,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// OnDisk is a Corpus[[]byte] persisting each testcase as a payload file
// plus a JSON sidecar under dir, the way the teacher's coverage.Corpus
// splits queue/ and crashes/ — generalized here with optional zstd
// compression above DefaultCompressThreshold, which the teacher's raw-bytes
// writer does not have.
type OnDisk struct {
	dir               string
	compressThreshold int
	mu                sync.RWMutex
	index             map[Id]bool
	order             []Id
	encoder           *zstd.Encoder
	decoder           *zstd.Decoder
}

// DefaultCompressThreshold is the payload size, in bytes, above which
// OnDisk compresses a testcase on write.
const DefaultCompressThreshold = 4096

// NewOnDisk creates (if needed) dir and returns an OnDisk corpus rooted
// there.
func NewOnDisk(dir string) (*OnDisk, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, kerr.New(kerr.CorpusFailure, "corpus.NewOnDisk", err)
	}
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, kerr.New(kerr.CorpusFailure, "corpus.NewOnDisk", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, kerr.New(kerr.CorpusFailure, "corpus.NewOnDisk", err)
	}
	od := &OnDisk{
		dir:               dir,
		compressThreshold: DefaultCompressThreshold,
		index:             make(map[Id]bool),
		encoder:           enc,
		decoder:           dec,
	}
	if err := od.loadIndex(); err != nil {
		return nil, err
	}
	return od, nil
}

func (o *OnDisk) payloadPath(id Id) string  { return filepath.Join(o.dir, string(id)+".bin") }
func (o *OnDisk) sidecarPath(id Id) string  { return filepath.Join(o.dir, string(id)+".json") }

func (o *OnDisk) loadIndex() error {
	entries, err := os.ReadDir(o.dir)
	if err != nil {
		return kerr.New(kerr.CorpusFailure, "corpus.loadIndex", err)
	}
	for _, e := range entries {
		if filepath.Ext(e.Name()) != ".json" {
			continue
		}
		id := Id(e.Name()[:len(e.Name())-len(".json")])
		o.index[id] = true
		o.order = append(o.order, id)
	}
	return nil
}

// Add implements Corpus[[]byte].
func (o *OnDisk) Add(tc *Testcase[[]byte]) (Id, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	id := NewId()
	tc.ID = id
	if err := o.writeLocked(id, tc); err != nil {
		return "", err
	}
	o.index[id] = true
	o.order = append(o.order, id)
	return id, nil
}

// Replace implements Corpus[[]byte].
func (o *OnDisk) Replace(id Id, tc *Testcase[[]byte]) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.index[id] {
		return kerr.New(kerr.CorpusFailure, "corpus.Replace", nil)
	}
	tc.ID = id
	return o.writeLocked(id, tc)
}

func (o *OnDisk) writeLocked(id Id, tc *Testcase[[]byte]) error {
	compressed := len(tc.Input) > o.compressThreshold
	payload := tc.Input
	if compressed {
		payload = o.encoder.EncodeAll(tc.Input, nil)
	}
	if err := os.WriteFile(o.payloadPath(id), payload, 0o644); err != nil {
		return kerr.New(kerr.CorpusFailure, "corpus.writePayload", err)
	}

	rec := sidecarRecord{ID: id, Compressed: compressed, ExecTime: tc.ExecTime, Metadata: tc.Metadata}
	buf, err := json.Marshal(rec)
	if err != nil {
		return kerr.New(kerr.Serialize, "corpus.writeSidecar", err)
	}
	if err := os.WriteFile(o.sidecarPath(id), buf, 0o644); err != nil {
		return kerr.New(kerr.CorpusFailure, "corpus.writeSidecar", err)
	}
	return nil
}

// Get implements Corpus[[]byte].
func (o *OnDisk) Get(id Id) (*Testcase[[]byte], error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	if !o.index[id] {
		return nil, kerr.New(kerr.CorpusFailure, "corpus.Get", nil)
	}

	sidecar, err := os.ReadFile(o.sidecarPath(id))
	if err != nil {
		return nil, kerr.New(kerr.CorpusFailure, "corpus.Get", err)
	}
	var rec sidecarRecord
	if err := json.Unmarshal(sidecar, &rec); err != nil {
		return nil, kerr.New(kerr.Serialize, "corpus.Get", err)
	}

	raw, err := os.ReadFile(o.payloadPath(id))
	if err != nil {
		return nil, kerr.New(kerr.CorpusFailure, "corpus.Get", err)
	}
	if rec.Compressed {
		raw, err = o.decoder.DecodeAll(raw, nil)
		if err != nil {
			return nil, kerr.New(kerr.Serialize, "corpus.Get", err)
		}
	}

	return &Testcase[[]byte]{
		ID:       id,
		Input:    raw,
		ExecTime: rec.ExecTime,
		Metadata: rec.Metadata,
	}, nil
}

// Remove implements Corpus[[]byte].
func (o *OnDisk) Remove(id Id) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.index[id] {
		return kerr.New(kerr.CorpusFailure, "corpus.Remove", nil)
	}
	delete(o.index, id)
	for i, cur := range o.order {
		if cur == id {
			o.order = append(o.order[:i], o.order[i+1:]...)
			break
		}
	}
	_ = os.Remove(o.payloadPath(id))
	_ = os.Remove(o.sidecarPath(id))
	return nil
}

// Count implements Corpus[[]byte].
func (o *OnDisk) Count() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.order)
}

// Ids implements Corpus[[]byte]. Ids added since NewOnDisk follow, in
// insertion order, any ids loaded from an existing directory; the loaded
// ids are in file-name order, since the directory records no insertion
// order.
func (o *OnDisk) Ids() []Id {
	o.mu.RLock()
	defer o.mu.RUnlock()
	ids := make([]Id, len(o.order))
	copy(ids, o.order)
	return ids
}

// Close releases the zstd encoder/decoder resources.
func (o *OnDisk) Close() {
	o.encoder.Close()
	o.decoder.Close()
}
