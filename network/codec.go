package network

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ldsec/mnistnn/matrix"
)

// Trained weights persist in a fixed binary layout with no version field:
//
//	6 bytes   ASCII signature "neural"
//	4 bytes   big-endian layer count, input layer included (len(weights)+1)
//	4 bytes   per layer: big-endian neuron count, input layer first
//	8 bytes   per weight: big-endian IEEE-754 float64, matrices in layer
//	          order, each row-major
var signature = [6]byte{'n', 'e', 'u', 'r', 'a', 'l'}

var (
	// ErrBadSignature indicates the stream does not start with the expected
	// signature bytes.
	ErrBadSignature = errors.New("network: bad weights-file signature")
	// ErrCorrupt indicates a stream that ends before its declared content.
	ErrCorrupt = errors.New("network: corrupt weights file")
)

// Save writes the network's weights to w in the fixed binary layout. The
// byte count written is exactly determined by the current weight shapes.
func (n *Network) Save(w io.Writer) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.Write(signature[:]); err != nil {
		return fmt.Errorf("network: save: %w", err)
	}

	sizes := n.Sizes()
	if err := binary.Write(bw, binary.BigEndian, uint32(len(sizes))); err != nil {
		return fmt.Errorf("network: save: %w", err)
	}
	for _, size := range sizes {
		if err := binary.Write(bw, binary.BigEndian, uint32(size)); err != nil {
			return fmt.Errorf("network: save: %w", err)
		}
	}

	for _, weight := range n.weights {
		if err := binary.Write(bw, binary.BigEndian, weight.RawRowMajor()); err != nil {
			return fmt.Errorf("network: save: %w", err)
		}
	}
	return bw.Flush()
}

// Load reads weights in the Save layout and returns a network built from
// them. A signature mismatch, truncation or weight-chain violation is
// terminal; no partially loaded network is ever returned.
func Load(r io.Reader) (*Network, error) {
	br := bufio.NewReader(r)

	var sig [6]byte
	if _, err := io.ReadFull(br, sig[:]); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if sig != signature {
		return nil, ErrBadSignature
	}

	var layerCount uint32
	if err := binary.Read(br, binary.BigEndian, &layerCount); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if layerCount < 2 {
		return nil, fmt.Errorf("%w: %d layers", ErrCorrupt, layerCount)
	}

	sizes := make([]uint32, layerCount)
	if err := binary.Read(br, binary.BigEndian, sizes); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	weights := make([]matrix.Matrix, layerCount-1)
	for l := range weights {
		rows, cols := int(sizes[l+1]), int(sizes[l])
		values := make([]float64, rows*cols)
		if err := binary.Read(br, binary.BigEndian, values); err != nil {
			return nil, fmt.Errorf("%w: layer %d: %v", ErrCorrupt, l, err)
		}
		weights[l] = matrix.New(rows, cols, values)
	}
	return FromWeights(weights)
}

// SaveFile saves the network's weights to the named file.
func (n *Network) SaveFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("network: %w", err)
	}
	if err := n.Save(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// LoadFile loads a network from the named weights file.
func LoadFile(path string) (*Network, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("network: %w", err)
	}
	defer f.Close()
	return Load(f)
}
