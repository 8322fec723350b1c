package pkg

import "path/filepath"

// Filter returns a filtered deep copy of obj. Scalar values are kept
// or dropped by matching their dotted key path against the include and
// exclude glob patterns; containers are always traversed and their
// path contribution is the dictionary key (array elements share their
// array's path). Exclude wins over include; a non-empty include list
// acts as a whitelist; with no patterns everything is kept.
func Filter(obj Object, include, exclude []string) Object {
	return filterObject(obj, "", include, exclude)
}

// keepValue mirrors glob filtering over dotted paths: any exclude
// match drops the value, otherwise a non-empty include list must match.
func keepValue(path string, include, exclude []string) bool {
	for _, pattern := range exclude {
		if matched, _ := filepath.Match(pattern, path); matched {
			return false
		}
	}
	if len(include) > 0 {
		for _, pattern := range include {
			if matched, _ := filepath.Match(pattern, path); matched {
				return true
			}
		}
		return false
	}
	return true
}

// filterObject returns the filtered copy, or nil when pruned.
func filterObject(obj Object, path string, include, exclude []string) Object {
	switch v := obj.(type) {
	case *Array:
		filtered := NewArray()
		for _, item := range v.Items() {
			if child := filterObject(item, path, include, exclude); child != nil {
				filtered.Append(child)
			}
		}
		return filtered
	case *Dictionary:
		filtered := NewDictionary()
		for _, key := range v.Keys() {
			fullKey := key
			if path != "" {
				fullKey = path + "." + key
			}
			value, _ := v.Get(key)
			if child := filterObject(value, fullKey, include, exclude); child != nil {
				filtered.Set(key, child)
			}
		}
		return filtered
	}
	if !keepValue(path, include, exclude) {
		return nil
	}
	return copyScalar(obj)
}

func copyScalar(obj Object) Object {
	switch v := obj.(type) {
	case *Null:
		return NewNull()
	case *Boolean:
		return NewBoolean(v.Value())
	case *Integer:
		copied := NewInteger()
		copied.SetValue(v.Value())
		return copied
	case *Real:
		copied := NewReal()
		copied.SetValue(v.Value())
		return copied
	case *String:
		copied := NewString()
		copied.SetValue(v.Value())
		return copied
	case *Data:
		copied := NewData()
		copied.value = append([]byte(nil), v.value...)
		return copied
	case *Date:
		copied := NewDate()
		copied.value = v.value
		return copied
	}
	return nil
}
