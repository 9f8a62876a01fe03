package models

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cast"
)

// ToFields flattens a record into its field map, keyed by json name.
func ToFields(record any) (map[string]string, error) {
	raw := map[string]interface{}{}
	if err := decode(record, &raw); err != nil {
		return nil, fmt.Errorf("failed to flatten record: %w", err)
	}
	fields, err := cast.ToStringMapStringE(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to flatten record: %w", err)
	}
	return fields, nil
}

// FromFields builds a record from a field map. Unknown keys are ignored and
// non-string values are converted.
func FromFields[T any](fields map[string]interface{}) (T, error) {
	var record T
	if err := decode(fields, &record); err != nil {
		return record, fmt.Errorf("failed to decode record: %w", err)
	}
	return record, nil
}

// FromStrings is FromFields for string maps.
func FromStrings[T any](fields map[string]string) (T, error) {
	raw := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		raw[k] = v
	}
	return FromFields[T](raw)
}

func decode(input, output any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           output,
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}
