package incremental

import (
	"fmt"
	"reflect"
	"unicode/utf8"

	jsonpool "github.com/ajitpratap0/partsync/pkg/json"
	stringpool "github.com/ajitpratap0/partsync/pkg/strings"
)

// ToKey serializes a partition into its canonical key: JSON with keys sorted
// at every depth and compact "," / ":" separators. Logically equal partitions
// produce identical keys regardless of map insertion order or process.
// Strings that are not valid UTF-8, in keys or values at any depth, are
// rejected: the encoder would replace them with U+FFFD and distinct
// partitions would share a key.
func ToKey(partition Partition) (string, error) {
	if partition == nil {
		partition = Partition{}
	}
	if err := validUTF8(reflect.ValueOf(map[string]interface{}(partition)), "$"); err != nil {
		return "", newEncodingError(partition, err)
	}
	data, err := jsonpool.MarshalCanonical(map[string]interface{}(partition))
	if err != nil {
		return "", newEncodingError(partition, err)
	}
	return stringpool.BytesToString(data), nil
}

// validUTF8 walks maps, slices and arrays below v and reports the first
// string, or map key, that is not valid UTF-8.
func validUTF8(v reflect.Value, path string) error {
	for v.Kind() == reflect.Interface || v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	switch v.Kind() {
	case reflect.String:
		if !utf8.ValidString(v.String()) {
			return fmt.Errorf("invalid UTF-8 string at %s", path)
		}
	case reflect.Map:
		iter := v.MapRange()
		for iter.Next() {
			key := iter.Key()
			if key.Kind() == reflect.String && !utf8.ValidString(key.String()) {
				return fmt.Errorf("invalid UTF-8 key under %s", path)
			}
			if err := validUTF8(iter.Value(), fmt.Sprintf("%s.%v", path, key)); err != nil {
				return err
			}
		}
	case reflect.Slice, reflect.Array:
		if v.Kind() == reflect.Slice && v.Type().Elem().Kind() == reflect.Uint8 {
			return nil
		}
		for i := 0; i < v.Len(); i++ {
			if err := validUTF8(v.Index(i), fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}
	}
	return nil
}

// FromKey is the inverse of ToKey. Numbers come back as json.Number so that
// ToKey(FromKey(k)) == k holds byte for byte.
func FromKey(key string) (Partition, error) {
	m, err := jsonpool.DecodeObject([]byte(key))
	if err != nil {
		return nil, newDecodingError(key, err)
	}
	return Partition(m), nil
}

// canonicalEqual compares two maps by their canonical encoding, falling back
// to reflect.DeepEqual for values that cannot be encoded.
func canonicalEqual(a, b map[string]interface{}) bool {
	if len(a) != len(b) {
		return false
	}
	if len(a) == 0 {
		return true
	}
	encA, errA := jsonpool.MarshalCanonical(a)
	encB, errB := jsonpool.MarshalCanonical(b)
	if errA != nil || errB != nil {
		return reflect.DeepEqual(a, b)
	}
	return string(encA) == string(encB)
}
