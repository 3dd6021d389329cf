package inference

import (
	"encoding/json"
	"fmt"
	"reflect"
)

// decodeInto unmarshals raw into a fresh value of out's element type so a
// failed decode or validation never touches the caller's value.
func decodeInto(raw json.RawMessage, out Validator) (Validator, error) {
	rv := reflect.ValueOf(out)
	if !rv.IsValid() || rv.Kind() != reflect.Pointer || rv.IsNil() {
		return nil, fmt.Errorf("output must be a non-nil pointer, got %T", out)
	}
	fresh := reflect.New(rv.Elem().Type())
	if err := json.Unmarshal(raw, fresh.Interface()); err != nil {
		return nil, err
	}
	v, ok := fresh.Interface().(Validator)
	if !ok {
		return nil, fmt.Errorf("%T does not implement Validator", fresh.Interface())
	}
	return v, nil
}

func commit(decoded, out Validator) error {
	dst := reflect.ValueOf(out).Elem()
	src := reflect.ValueOf(decoded).Elem()
	if !src.Type().AssignableTo(dst.Type()) {
		return fmt.Errorf("cannot assign %s to %s", src.Type(), dst.Type())
	}
	dst.Set(src)
	return nil
}
