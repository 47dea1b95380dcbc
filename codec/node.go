package codec

import (
	"github.com/dialog-db/dialog/dialogerr"
	"github.com/dialog-db/dialog/hash"
	"github.com/dialog-db/dialog/key"
)

// NodeKind distinguishes a leaf (key -> value bytes) from an index
// (boundary key -> child hash) node.
type NodeKind uint8

const (
	// Leaf stores key/value entries directly.
	Leaf NodeKind = iota
	// Index stores boundary keys and links to child nodes.
	Index
)

// Entry is one leaf entry: a key and its associated value bytes.
type Entry struct {
	Key   key.Key
	Value []byte
}

// Link is one index entry: the largest key reachable through Child.
type Link struct {
	Boundary key.Key
	Child    hash.Hash
}

// EncodeLeaf serializes a leaf node's sorted entries using the
// columnar cell/range/data layout (spec.md §4.4), columns [key, value].
func EncodeLeaf(entries []Entry) ([]byte, error) {
	rows := make([]Row, len(entries))
	for i, e := range entries {
		rows[i] = Row{append([]byte{}, e.Key[:]...), e.Value}
	}
	body, err := EncodeColumns(rows)
	if err != nil {
		return nil, err
	}
	return append([]byte{byte(Leaf)}, body...), nil
}

// DecodeLeaf parses bytes produced by EncodeLeaf.
func DecodeLeaf(buf []byte) ([]Entry, error) {
	kind, body, err := splitKind(buf)
	if err != nil {
		return nil, err
	}
	if kind != Leaf {
		return nil, dialogerr.InvalidValue("expected leaf node")
	}
	rows, err := DecodeColumns(body)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, len(rows))
	for i, row := range rows {
		if len(row) != 2 {
			return nil, dialogerr.InvalidValue("leaf row must have 2 columns")
		}
		var k key.Key
		if len(row[0]) != key.Length {
			return nil, dialogerr.InvalidValue("leaf row key has wrong width")
		}
		copy(k[:], row[0])
		entries[i] = Entry{Key: k, Value: row[1]}
	}
	return entries, nil
}

// EncodeIndex serializes an index node's sorted links, columns
// [boundary key, child hash].
func EncodeIndex(links []Link) ([]byte, error) {
	rows := make([]Row, len(links))
	for i, l := range links {
		rows[i] = Row{append([]byte{}, l.Boundary[:]...), append([]byte{}, l.Child[:]...)}
	}
	body, err := EncodeColumns(rows)
	if err != nil {
		return nil, err
	}
	return append([]byte{byte(Index)}, body...), nil
}

// DecodeIndex parses bytes produced by EncodeIndex.
func DecodeIndex(buf []byte) ([]Link, error) {
	kind, body, err := splitKind(buf)
	if err != nil {
		return nil, err
	}
	if kind != Index {
		return nil, dialogerr.InvalidValue("expected index node")
	}
	rows, err := DecodeColumns(body)
	if err != nil {
		return nil, err
	}
	links := make([]Link, len(rows))
	for i, row := range rows {
		if len(row) != 2 {
			return nil, dialogerr.InvalidValue("index row must have 2 columns")
		}
		var k key.Key
		if len(row[0]) != key.Length {
			return nil, dialogerr.InvalidValue("index row boundary has wrong width")
		}
		copy(k[:], row[0])
		h, err := hash.FromBytes(row[1])
		if err != nil {
			return nil, dialogerr.InvalidValue("index row child hash has wrong width")
		}
		links[i] = Link{Boundary: k, Child: h}
	}
	return links, nil
}

// PeekKind reports whether buf encodes a leaf or index node without
// fully decoding it, used by the tree walker to dispatch.
func PeekKind(buf []byte) (NodeKind, error) {
	kind, _, err := splitKind(buf)
	return kind, err
}

func splitKind(buf []byte) (NodeKind, []byte, error) {
	if len(buf) < 1 {
		return 0, nil, dialogerr.InvalidValue("empty node bytes")
	}
	return NodeKind(buf[0]), buf[1:], nil
}
