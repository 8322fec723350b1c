package pkg

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// EncodeJSON renders obj as indented JSON. Dictionary members keep
// their plist insertion order, which is why the writer drives the
// structure itself instead of round-tripping through a Go map. Data
// becomes a Base64 string, dates RFC 3339 strings, Null null.
func EncodeJSON(w io.Writer, obj Object) error {
	if err := writeJSON(w, obj, 0); err != nil {
		return err
	}
	_, err := w.Write([]byte("\n"))
	return err
}

func writeJSON(w io.Writer, obj Object, indent int) error {
	pad := strings.Repeat("  ", indent)
	switch v := obj.(type) {
	case *Null:
		_, err := w.Write([]byte("null"))
		return err
	case *Boolean:
		_, err := w.Write([]byte(strconv.FormatBool(v.Value())))
		return err
	case *Integer:
		_, err := w.Write([]byte(strconv.FormatInt(v.Value(), 10)))
		return err
	case *Real:
		encoded, err := json.Marshal(v.Value())
		if err != nil {
			// Inf and NaN have no JSON spelling; fall back to a string.
			encoded, _ = json.Marshal(formatReal(v.Value()))
		}
		_, err = w.Write(encoded)
		return err
	case *String:
		return writeJSONScalar(w, v.Value())
	case *Data:
		return writeJSONScalar(w, base64.StdEncoding.EncodeToString(v.Bytes()))
	case *Date:
		return writeJSONScalar(w, v.Value().In(time.UTC).Format(time.RFC3339))
	case *Array:
		if v.Len() == 0 {
			_, err := w.Write([]byte("[]"))
			return err
		}
		if _, err := w.Write([]byte("[\n")); err != nil {
			return err
		}
		for i, item := range v.Items() {
			if _, err := w.Write([]byte(pad + "  ")); err != nil {
				return err
			}
			if err := writeJSON(w, item, indent+1); err != nil {
				return err
			}
			if i < v.Len()-1 {
				if _, err := w.Write([]byte(",")); err != nil {
					return err
				}
			}
			if _, err := w.Write([]byte("\n")); err != nil {
				return err
			}
		}
		_, err := w.Write([]byte(pad + "]"))
		return err
	case *Dictionary:
		if v.Len() == 0 {
			_, err := w.Write([]byte("{}"))
			return err
		}
		if _, err := w.Write([]byte("{\n")); err != nil {
			return err
		}
		for i, key := range v.Keys() {
			keyBytes, err := json.Marshal(key)
			if err != nil {
				return err
			}
			if _, err := w.Write([]byte(pad + "  ")); err != nil {
				return err
			}
			if _, err := w.Write(keyBytes); err != nil {
				return err
			}
			if _, err := w.Write([]byte(": ")); err != nil {
				return err
			}
			value, _ := v.Get(key)
			if err := writeJSON(w, value, indent+1); err != nil {
				return err
			}
			if i < v.Len()-1 {
				if _, err := w.Write([]byte(",")); err != nil {
					return err
				}
			}
			if _, err := w.Write([]byte("\n")); err != nil {
				return err
			}
		}
		_, err := w.Write([]byte(pad + "}"))
		return err
	}
	return fmt.Errorf("cannot render object of type %T", obj)
}

func writeJSONScalar(w io.Writer, s string) error {
	encoded, err := json.Marshal(s)
	if err != nil {
		return err
	}
	_, err = w.Write(encoded)
	return err
}

// Native converts a tree to plain Go values: map[string]any for
// dictionaries (order is lost), []any for arrays, scalars otherwise.
// Tests use it to diff trees; the ordered renderers above are the
// user-facing output paths.
func Native(obj Object) any {
	switch v := obj.(type) {
	case *Null:
		return nil
	case *Boolean:
		return v.Value()
	case *Integer:
		return v.Value()
	case *Real:
		return v.Value()
	case *String:
		return v.Value()
	case *Data:
		return v.Bytes()
	case *Date:
		return v.Value()
	case *Array:
		items := make([]any, 0, v.Len())
		for _, item := range v.Items() {
			items = append(items, Native(item))
		}
		return items
	case *Dictionary:
		m := make(map[string]any, v.Len())
		for _, key := range v.Keys() {
			value, _ := v.Get(key)
			m[key] = Native(value)
		}
		return m
	}
	return nil
}
