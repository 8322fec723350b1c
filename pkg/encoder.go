package pkg

import (
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"io"
	"math"
	"strconv"
	"time"
)

const plistDoctype = `DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd"`

// Encode writes obj as a canonical XML plist: header, DOCTYPE,
// <plist version="1.0"> wrapper, two-space indent. Dictionaries are
// written in insertion order, data as standard Base64, dates as
// RFC 3339 UTC.
func Encode(w io.Writer, obj Object) error {
	if _, err := w.Write([]byte(xml.Header)); err != nil {
		return err
	}
	encoder := xml.NewEncoder(w)
	encoder.Indent("", "  ")
	if err := encoder.EncodeToken(xml.Directive(plistDoctype)); err != nil {
		return err
	}
	plistStart := xml.StartElement{
		Name: xml.Name{Local: "plist"},
		Attr: []xml.Attr{{Name: xml.Name{Local: "version"}, Value: "1.0"}},
	}
	if err := encoder.EncodeToken(plistStart); err != nil {
		return err
	}
	if err := encodeObject(encoder, obj); err != nil {
		return err
	}
	if err := encoder.EncodeToken(plistStart.End()); err != nil {
		return err
	}
	return encoder.Flush()
}

func encodeObject(encoder *xml.Encoder, obj Object) error {
	switch v := obj.(type) {
	case *Null:
		return encodeEmpty(encoder, "null")
	case *Boolean:
		if v.Value() {
			return encodeEmpty(encoder, "true")
		}
		return encodeEmpty(encoder, "false")
	case *Integer:
		return encodeText(encoder, "integer", strconv.FormatInt(v.Value(), 10))
	case *Real:
		return encodeText(encoder, "real", formatReal(v.Value()))
	case *String:
		return encodeText(encoder, "string", v.Value())
	case *Data:
		return encodeText(encoder, "data", base64.StdEncoding.EncodeToString(v.Bytes()))
	case *Date:
		return encodeText(encoder, "date", v.Value().In(time.UTC).Format(time.RFC3339))
	case *Array:
		start := xml.StartElement{Name: xml.Name{Local: "array"}}
		if err := encoder.EncodeToken(start); err != nil {
			return err
		}
		for _, item := range v.Items() {
			if err := encodeObject(encoder, item); err != nil {
				return err
			}
		}
		return encoder.EncodeToken(start.End())
	case *Dictionary:
		start := xml.StartElement{Name: xml.Name{Local: "dict"}}
		if err := encoder.EncodeToken(start); err != nil {
			return err
		}
		for _, key := range v.Keys() {
			if err := encodeText(encoder, "key", key); err != nil {
				return err
			}
			value, _ := v.Get(key)
			if err := encodeObject(encoder, value); err != nil {
				return err
			}
		}
		return encoder.EncodeToken(start.End())
	}
	return fmt.Errorf("cannot encode object of type %T", obj)
}

func encodeEmpty(encoder *xml.Encoder, name string) error {
	start := xml.StartElement{Name: xml.Name{Local: name}}
	if err := encoder.EncodeToken(start); err != nil {
		return err
	}
	return encoder.EncodeToken(start.End())
}

func encodeText(encoder *xml.Encoder, name, text string) error {
	return encoder.EncodeElement(text, xml.StartElement{Name: xml.Name{Local: name}})
}

// formatReal spells non-finite values the way plists do.
func formatReal(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	case math.IsNaN(f):
		return "nan"
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}
