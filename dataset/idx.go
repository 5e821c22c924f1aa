package dataset

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/ioutil"
	"path/filepath"
	"strings"

	"github.com/ldsec/mnistnn/matrix"
)

// IDX files store unsigned-byte tensors: two zero marker bytes, a type tag,
// a dimension count in {1,2,3}, one big-endian uint32 size per dimension,
// then the raw payload. See http://yann.lecun.com/exdb/mnist/.
const (
	idxTypeUnsignedByte = 0x08
	maxDimensions       = 3

	// NumClasses is the number of digit classes; 1-D label files decode to
	// one-hot columns of this length.
	NumClasses = 10
)

var (
	// ErrBadMarker indicates the leading marker bytes are not zero.
	ErrBadMarker = errors.New("dataset: bad IDX marker bytes")
	// ErrBadType indicates a data type tag other than unsigned byte.
	ErrBadType = errors.New("dataset: IDX type tag is not unsigned byte")
	// ErrBadDimensions indicates a dimension count outside 1..3.
	ErrBadDimensions = errors.New("dataset: IDX dimension count must be 1, 2 or 3")
	// ErrTruncated indicates the stream ended before the declared payload.
	ErrTruncated = errors.New("dataset: truncated IDX stream")
	// ErrLabelRange indicates a label byte outside 0..9.
	ErrLabelRange = errors.New("dataset: label byte out of range")
	// ErrExhausted indicates Next was called with no records left.
	ErrExhausted = errors.New("dataset: no records left")
)

// Reader is a forward-only cursor over the records of one IDX stream. The
// stream is drained into memory when the Reader is built; Next never touches
// the source again.
type Reader struct {
	name      string
	payload   []byte
	count     int // number of records
	recordLen int // bytes per record; 0 for 1-D (scalar) files
	next      int // index of the record Next returns
}

// NewReader drains r and parses the IDX header. name is used only in error
// messages. Any header violation or truncation is terminal: no Reader is
// returned.
func NewReader(name string, r io.Reader) (*Reader, error) {
	raw, err := ioutil.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("dataset: reading %q: %w", name, err)
	}
	if len(raw) < 4 {
		return nil, fmt.Errorf("%w: %q", ErrTruncated, name)
	}
	if raw[0] != 0 || raw[1] != 0 {
		return nil, fmt.Errorf("%w: %q", ErrBadMarker, name)
	}
	if raw[2] != idxTypeUnsignedByte {
		return nil, fmt.Errorf("%w: %q has tag 0x%02x", ErrBadType, name, raw[2])
	}
	numDims := int(raw[3])
	if numDims == 0 || numDims > maxDimensions {
		return nil, fmt.Errorf("%w: %q has %d", ErrBadDimensions, name, numDims)
	}
	if len(raw) < 4+4*numDims {
		return nil, fmt.Errorf("%w: %q", ErrTruncated, name)
	}

	dims := make([]int, numDims)
	for i := range dims {
		dims[i] = int(binary.BigEndian.Uint32(raw[4+4*i:]))
	}

	rd := &Reader{
		name:    name,
		payload: raw[4+4*numDims:],
		count:   dims[0],
	}
	if numDims > 1 {
		rd.recordLen = 1
		for _, d := range dims[1:] {
			rd.recordLen *= d
		}
	}

	// A 1-D file holds one byte per record.
	perRecord := rd.recordLen
	if perRecord == 0 {
		perRecord = 1
	}
	if len(rd.payload) < rd.count*perRecord {
		return nil, fmt.Errorf("%w: %q declares %d records of %d bytes, has %d bytes",
			ErrTruncated, name, rd.count, perRecord, len(rd.payload))
	}
	return rd, nil
}

// Len returns the number of records the header declares.
func (r *Reader) Len() int { return r.count }

// HasMore reports whether Next will return another record.
func (r *Reader) HasMore() bool { return r.next < r.count }

// Next decodes the next record as a column vector and advances the cursor.
//
// Multi-dimensional records flatten to a k×1 column of byte/255 values; when
// augment is set a trailing constant 1.0 is appended so the first weight
// layer's extra column acts as a bias. Scalar (1-D) records decode to a
// 10×1 one-hot column and ignore augment.
func (r *Reader) Next(augment bool) (matrix.Matrix, error) {
	if !r.HasMore() {
		return matrix.Matrix{}, fmt.Errorf("%w: %q", ErrExhausted, r.name)
	}

	if r.recordLen == 0 {
		v := r.payload[r.next]
		r.next++
		if v >= NumClasses {
			return matrix.Matrix{}, fmt.Errorf("%w: %q record %d holds %d",
				ErrLabelRange, r.name, r.next-1, v)
		}
		label := make([]float64, NumClasses)
		label[v] = 1
		return matrix.Column(label), nil
	}

	raw := r.payload[r.next*r.recordLen : (r.next+1)*r.recordLen]
	r.next++
	n := r.recordLen
	if augment {
		n++
	}
	values := make([]float64, n)
	for i, b := range raw {
		values[i] = float64(b) / 255
	}
	if augment {
		values[n-1] = 1
	}
	return matrix.Column(values), nil
}

// Zip pairs the records of data and labels positionally into a Set. The
// result is truncated to the shorter of the two streams, and further to
// limit when limit > 0.
func Zip(data, labels *Reader, augment bool, limit int) (Set, error) {
	n := data.Len()
	if labels.Len() < n {
		n = labels.Len()
	}
	if limit > 0 && limit < n {
		n = limit
	}

	set := make(Set, n)
	for i := 0; i < n; i++ {
		d, err := data.Next(augment)
		if err != nil {
			return nil, err
		}
		l, err := labels.Next(false)
		if err != nil {
			return nil, err
		}
		set[i] = DataPoint{Data: d, Label: l}
	}
	return set, nil
}

// Load reads a feature file and a label file and zips them into a Set.
// Files whose name ends in ".gz" are gunzipped transparently, matching how
// the MNIST database distributes them.
func Load(dataPath, labelPath string, augment bool, limit int) (Set, error) {
	data, err := openIDX(dataPath)
	if err != nil {
		return nil, err
	}
	labels, err := openIDX(labelPath)
	if err != nil {
		return nil, err
	}
	return Zip(data, labels, augment, limit)
}

func openIDX(path string) (*Reader, error) {
	raw, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("dataset: %w", err)
	}
	var src io.Reader = bytes.NewReader(raw)
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(src)
		if err != nil {
			return nil, fmt.Errorf("dataset: gunzip %q: %w", path, err)
		}
		defer gz.Close()
		src = gz
	}
	return NewReader(filepath.Base(path), src)
}
