package dataset

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"errors"
	"io/ioutil"
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ldsec/mnistnn/matrix"
)

// idxBytes assembles a well-formed IDX stream for tests.
func idxBytes(dims []int, payload []byte) []byte {
	var buf bytes.Buffer
	buf.Write([]byte{0, 0, idxTypeUnsignedByte, byte(len(dims))})
	for _, d := range dims {
		var size [4]byte
		binary.BigEndian.PutUint32(size[:], uint32(d))
		buf.Write(size[:])
	}
	buf.Write(payload)
	return buf.Bytes()
}

func TestReaderThreeDimensional(t *testing.T) {
	// Two records of 2x2 bytes each, flattened to 4x1 columns.
	raw := idxBytes([]int{2, 2, 2}, []byte{0, 1, 2, 3, 4, 5, 6, 7})

	r, err := NewReader("cube", bytes.NewReader(raw))
	require.NoError(t, err)
	require.Equal(t, 2, r.Len())

	for rec := 0; rec < 2; rec++ {
		require.True(t, r.HasMore())
		m, err := r.Next(false)
		require.NoError(t, err)
		rows, cols := m.Dims()
		require.Equal(t, 4, rows)
		require.Equal(t, 1, cols)
		for i := 0; i < 4; i++ {
			assert.Equal(t, float64(rec*4+i)/255, m.At(i, 0))
		}
	}
	assert.False(t, r.HasMore())

	_, err = r.Next(false)
	assert.True(t, errors.Is(err, ErrExhausted))
}

func TestReaderAugment(t *testing.T) {
	raw := idxBytes([]int{1, 2, 2}, []byte{0, 51, 102, 255})

	r, err := NewReader("img", bytes.NewReader(raw))
	require.NoError(t, err)

	m, err := r.Next(true)
	require.NoError(t, err)
	rows, _ := m.Dims()
	require.Equal(t, 5, rows)
	assert.Equal(t, 51.0/255, m.At(1, 0))
	assert.Equal(t, 1.0, m.At(4, 0))
}

func TestReaderLabelOneHot(t *testing.T) {
	raw := idxBytes([]int{3}, []byte{4, 0, 9})

	r, err := NewReader("labels", bytes.NewReader(raw))
	require.NoError(t, err)
	require.Equal(t, 3, r.Len())

	// Augmentation never applies to scalar records.
	m, err := r.Next(true)
	require.NoError(t, err)
	rows, cols := m.Dims()
	require.Equal(t, NumClasses, rows)
	require.Equal(t, 1, cols)
	for i := 0; i < NumClasses; i++ {
		want := 0.0
		if i == 4 {
			want = 1.0
		}
		assert.Equal(t, want, m.At(i, 0))
	}
}

func TestReaderLabelOutOfRange(t *testing.T) {
	raw := idxBytes([]int{1}, []byte{10})

	r, err := NewReader("labels", bytes.NewReader(raw))
	require.NoError(t, err)

	_, err = r.Next(false)
	assert.True(t, errors.Is(err, ErrLabelRange))
}

func TestReaderHeaderViolations(t *testing.T) {
	cases := []struct {
		name string
		raw  []byte
		want error
	}{
		{"bad marker", append([]byte{1, 0, idxTypeUnsignedByte, 1}, make([]byte, 4)...), ErrBadMarker},
		{"bad type", append([]byte{0, 0, 0x0d, 1}, make([]byte, 4)...), ErrBadType},
		{"zero dims", []byte{0, 0, idxTypeUnsignedByte, 0}, ErrBadDimensions},
		{"four dims", []byte{0, 0, idxTypeUnsignedByte, 4}, ErrBadDimensions},
		{"short header", []byte{0, 0}, ErrTruncated},
		{"missing dim sizes", []byte{0, 0, idxTypeUnsignedByte, 2, 0, 0}, ErrTruncated},
		{"truncated payload", idxBytes([]int{2, 2, 2}, []byte{0, 1, 2}), ErrTruncated},
		{"truncated labels", idxBytes([]int{5}, []byte{1, 2}), ErrTruncated},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewReader(tc.name, bytes.NewReader(tc.raw))
			assert.True(t, errors.Is(err, tc.want), "got %v", err)
		})
	}
}

func TestZipTruncatesToShorterStream(t *testing.T) {
	data, err := NewReader("data", bytes.NewReader(idxBytes([]int{3, 2, 1}, []byte{0, 1, 2, 3, 4, 5})))
	require.NoError(t, err)
	labels, err := NewReader("labels", bytes.NewReader(idxBytes([]int{2}, []byte{1, 0})))
	require.NoError(t, err)

	set, err := Zip(data, labels, false, 0)
	require.NoError(t, err)
	require.Len(t, set, 2)

	rows, _ := set[0].Data.Dims()
	assert.Equal(t, 2, rows)
	rows, _ = set[0].Label.Dims()
	assert.Equal(t, NumClasses, rows)
}

func TestZipLimit(t *testing.T) {
	data, err := NewReader("data", bytes.NewReader(idxBytes([]int{3, 2, 1}, []byte{0, 1, 2, 3, 4, 5})))
	require.NoError(t, err)
	labels, err := NewReader("labels", bytes.NewReader(idxBytes([]int{3}, []byte{1, 0, 2})))
	require.NoError(t, err)

	set, err := Zip(data, labels, false, 1)
	require.NoError(t, err)
	assert.Len(t, set, 1)
}

func TestLoadGzip(t *testing.T) {
	dir := t.TempDir()

	write := func(name string, raw []byte) string {
		path := filepath.Join(dir, name)
		var buf bytes.Buffer
		gz := gzip.NewWriter(&buf)
		_, err := gz.Write(raw)
		require.NoError(t, err)
		require.NoError(t, gz.Close())
		require.NoError(t, ioutil.WriteFile(path, buf.Bytes(), 0600))
		return path
	}

	dataPath := write("images.gz", idxBytes([]int{2, 2, 2}, []byte{0, 1, 2, 3, 4, 5, 6, 7}))
	labelPath := write("labels.gz", idxBytes([]int{2}, []byte{3, 7}))

	set, err := Load(dataPath, labelPath, true, 0)
	require.NoError(t, err)
	require.Len(t, set, 2)

	rows, _ := set[0].Data.Dims()
	assert.Equal(t, 5, rows)
	assert.Equal(t, 1.0, set[0].Data.At(4, 0))
	assert.Equal(t, 1.0, set[0].Label.At(3, 0))
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope"), "also-nope", false, 0)
	assert.Error(t, err)
}

func TestSetShuffleDeterministic(t *testing.T) {
	build := func() Set {
		set := make(Set, 8)
		for i := range set {
			set[i] = DataPoint{Data: matrix.Column([]float64{float64(i)})}
		}
		return set
	}

	a, b := build(), build()
	a.Shuffle(rand.New(rand.NewSource(3)))
	b.Shuffle(rand.New(rand.NewSource(3)))

	for i := range a {
		assert.Equal(t, a[i].Data.At(0, 0), b[i].Data.At(0, 0))
	}
}
