// Package codec implements the columnar node encoding described in
// spec.md §4.4: prolly tree nodes are encoded column-by-column with a
// byte-level deduplication pool, so that entries sharing a column
// value (e.g. many facts about the same entity) pay for that value's
// bytes only once per node. Length prefixes are LEB128 unsigned
// varints, the same convention the teacher's hamtdir package uses for
// its own canonical encoding (encoding/binary.PutUvarint/Uvarint).
package codec

import (
	"encoding/binary"

	"github.com/dialog-db/dialog/dialogerr"
)

// Row is one record's column values, each an opaque byte string.
type Row [][]byte

// EncodeColumns serializes rows into the columnar cell/range/data
// layout: a dedup pool ("cells", offset+length pairs into a single
// "data" blob) and, per column, one "range" array of uvarint indexes
// into that pool.
//
// All rows must carry the same number of columns.
func EncodeColumns(rows []Row) ([]byte, error) {
	if len(rows) == 0 {
		return encodeHeader(0, 0), nil
	}
	columnCount := len(rows[0])
	for _, row := range rows {
		if len(row) != columnCount {
			return nil, dialogerr.InvalidValue("columnar rows must share a column count")
		}
	}

	pool := make([][]byte, 0, len(rows)*columnCount)
	index := make(map[string]int, len(rows)*columnCount)
	ranges := make([][]int, columnCount)
	for c := range ranges {
		ranges[c] = make([]int, len(rows))
	}

	for r, row := range rows {
		for c, value := range row {
			key := string(value)
			id, ok := index[key]
			if !ok {
				id = len(pool)
				index[key] = id
				pool = append(pool, value)
			}
			ranges[c][r] = id
		}
	}

	var data []byte
	cells := make([]cellSpan, len(pool))
	for i, value := range pool {
		cells[i] = cellSpan{offset: uint64(len(data)), length: uint64(len(value))}
		data = append(data, value...)
	}

	out := encodeHeader(uint64(columnCount), uint64(len(rows)))
	out = appendUvarint(out, uint64(len(cells)))
	for _, c := range cells {
		out = appendUvarint(out, c.offset)
		out = appendUvarint(out, c.length)
	}
	for _, column := range ranges {
		for _, id := range column {
			out = appendUvarint(out, uint64(id))
		}
	}
	out = appendUvarint(out, uint64(len(data)))
	out = append(out, data...)
	return out, nil
}

// DecodeColumns parses bytes produced by EncodeColumns back into rows.
func DecodeColumns(buf []byte) ([]Row, error) {
	columnCount, n, err := readUvarint(buf)
	if err != nil {
		return nil, err
	}
	buf = buf[n:]
	rowCount, n, err := readUvarint(buf)
	if err != nil {
		return nil, err
	}
	buf = buf[n:]

	if columnCount == 0 && rowCount == 0 {
		return nil, nil
	}

	cellCount, n, err := readUvarint(buf)
	if err != nil {
		return nil, err
	}
	buf = buf[n:]

	cells := make([]cellSpan, cellCount)
	for i := range cells {
		offset, n, err := readUvarint(buf)
		if err != nil {
			return nil, err
		}
		buf = buf[n:]
		length, n, err := readUvarint(buf)
		if err != nil {
			return nil, err
		}
		buf = buf[n:]
		cells[i] = cellSpan{offset: offset, length: length}
	}

	ranges := make([][]uint64, columnCount)
	for c := range ranges {
		ranges[c] = make([]uint64, rowCount)
		for r := range ranges[c] {
			id, n, err := readUvarint(buf)
			if err != nil {
				return nil, err
			}
			buf = buf[n:]
			ranges[c][r] = id
		}
	}

	dataLen, n, err := readUvarint(buf)
	if err != nil {
		return nil, err
	}
	buf = buf[n:]
	if uint64(len(buf)) < dataLen {
		return nil, dialogerr.InvalidValue("truncated columnar data section")
	}
	data := buf[:dataLen]

	rows := make([]Row, rowCount)
	for r := range rows {
		row := make(Row, columnCount)
		for c := 0; c < int(columnCount); c++ {
			id := ranges[c][r]
			if id >= uint64(len(cells)) {
				return nil, dialogerr.InvalidValue("columnar range references unknown cell")
			}
			span := cells[id]
			if span.offset+span.length > uint64(len(data)) {
				return nil, dialogerr.InvalidValue("columnar cell span out of bounds")
			}
			value := make([]byte, span.length)
			copy(value, data[span.offset:span.offset+span.length])
			row[c] = value
		}
		rows[r] = row
	}
	return rows, nil
}

type cellSpan struct {
	offset uint64
	length uint64
}

func encodeHeader(columnCount, rowCount uint64) []byte {
	out := appendUvarint(nil, columnCount)
	return appendUvarint(out, rowCount)
}

func appendUvarint(buf []byte, v uint64) []byte {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], v)
	return append(buf, tmp[:n]...)
}

func readUvarint(buf []byte) (uint64, int, error) {
	v, n := binary.Uvarint(buf)
	if n <= 0 {
		return 0, 0, dialogerr.InvalidValue("malformed varint in columnar stream")
	}
	return v, n, nil
}
