package saj

import (
	"bytes"
	"encoding/csv"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	wifiShortLayoutColumns = 23
	wifiLongLayoutColumns  = 35
)

// Payload is a decoded status document that sensors read their raw field from.
type Payload interface {
	Field(loc Locator) (string, bool)
	Number(raw string) (decimal.Decimal, error)
}

// xmlDocument is a flat XML document: one root element whose children carry
// text values.
type xmlDocument struct {
	root   string
	fields map[string]string
}

func decodeXMLDocument(body []byte, root string) (*xmlDocument, error) {
	dec := xml.NewDecoder(bytes.NewReader(body))
	doc := &xmlDocument{fields: map[string]string{}}
	depth := 0
	var current string
	var text strings.Builder
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStructure, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			switch depth {
			case 1:
				doc.root = t.Name.Local
			case 2:
				current = t.Name.Local
				text.Reset()
			}
		case xml.CharData:
			if depth == 2 {
				text.Write(t)
			}
		case xml.EndElement:
			if depth == 2 {
				doc.fields[current] = strings.TrimSpace(text.String())
			}
			depth--
		}
	}
	if doc.root == "" {
		return nil, fmt.Errorf("%w: empty document", ErrStructure)
	}
	if doc.root != root {
		return nil, fmt.Errorf("%w: root element %q, expected %q", ErrStructure, doc.root, root)
	}
	return doc, nil
}

func (d *xmlDocument) Field(loc Locator) (string, bool) {
	if loc.Element == "" {
		return "", false
	}
	v, ok := d.fields[loc.Element]
	return v, ok
}

func (d *xmlDocument) Number(raw string) (decimal.Decimal, error) {
	return decimal.NewFromString(raw)
}

func (d *xmlDocument) text(element string) string {
	return d.fields[element]
}

// csvRecord is one wifi status line. Its layout is picked from the column count.
type csvRecord struct {
	columns []string
	layout  layout
}

func decodeCSVLine(body []byte) ([]string, error) {
	r := csv.NewReader(bytes.NewReader(bytes.TrimSpace(body)))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	record, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStructure, err)
	}
	for i := range record {
		record[i] = strings.TrimSpace(record[i])
	}
	return record, nil
}

func decodeCSVRecord(body []byte) (*csvRecord, error) {
	columns, err := decodeCSVLine(body)
	if err != nil {
		return nil, err
	}
	rec := &csvRecord{columns: columns}
	switch n := len(columns); {
	case n >= wifiLongLayoutColumns:
		rec.layout = layoutLong
	case n >= wifiShortLayoutColumns:
		rec.layout = layoutShort
	default:
		return nil, fmt.Errorf("%w: status line has %d columns, matches no known layout", ErrStructure, n)
	}
	return rec, nil
}

func (r *csvRecord) Field(loc Locator) (string, bool) {
	col := loc.Columns[r.layout]
	if col == NoColumn || col >= len(r.columns) {
		return "", false
	}
	return r.columns[col], true
}

// Number parses a hexadecimal integer column.
func (r *csvRecord) Number(raw string) (decimal.Decimal, error) {
	n, err := strconv.ParseInt(raw, 16, 64)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return decimal.NewFromInt(n), nil
}

// invalidPayload stands in for a status document that failed to decode, so
// that every sensor is disabled by the same update path.
type invalidPayload struct{}

func (invalidPayload) Field(Locator) (string, bool) {
	return "", false
}

func (invalidPayload) Number(raw string) (decimal.Decimal, error) {
	return decimal.Decimal{}, fmt.Errorf("no value for %q", raw)
}
