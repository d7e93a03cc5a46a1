package store

import (
	"database/sql"
	"fmt"

	"github.com/roach88/paramx/internal/value"
)

// marshalObject converts an object to canonical JSON TEXT for storage.
func marshalObject(obj value.Object) (string, error) {
	data, err := value.MarshalCanonical(obj)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// marshalOutput stores nil as SQL NULL; failed runs have no output.
func marshalOutput(out value.Object) (sql.NullString, error) {
	if out == nil {
		return sql.NullString{}, nil
	}
	s, err := marshalObject(out)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("marshal output: %w", err)
	}
	return sql.NullString{String: s, Valid: true}, nil
}

func unmarshalObject(data string) (value.Object, error) {
	return value.Unmarshal([]byte(data))
}

func unmarshalOutput(ns sql.NullString) (value.Object, error) {
	if !ns.Valid {
		return nil, nil
	}
	obj, err := unmarshalObject(ns.String)
	if err != nil {
		return nil, fmt.Errorf("unmarshal output: %w", err)
	}
	return obj, nil
}
